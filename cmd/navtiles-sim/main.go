package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/navtiles/internal/config"
	"github.com/annel0/navtiles/internal/eventbus"
	"github.com/annel0/navtiles/internal/logging"
	"github.com/annel0/navtiles/internal/meshstore"
	"github.com/annel0/navtiles/internal/observability"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/tilecache"
	"github.com/annel0/navtiles/internal/updater"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config (defaults to $NAVTILES_CONFIG)")
		worldspace   = flag.String("world", "sys::default", "Worldspace id")
		objects      = flag.Int("objects", 500, "Number of objects to scatter")
		extent       = flag.Float64("extent", 20000, "Half-size of the populated area in world units")
		terrainCells = flag.Int("cells", 4, "Terrain grid size in cells per side")
		ticks        = flag.Int("ticks", 200, "Number of simulation ticks")
		tick         = flag.Duration("tick", 20*time.Millisecond, "Tick duration")
		moveFraction = flag.Float64("move", 0.05, "Fraction of objects moved per tick")
		seed         = flag.Int64("seed", 42, "Random seed")
		serveMetrics = flag.Bool("metrics", false, "Serve Prometheus /metrics while running")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	logging.Configure(loggingOptions(cfg.Logging))
	if err := logging.InitDefaultLogger("navtiles-sim"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, simOptions{
		worldspace:   tilecache.WorldspaceID(*worldspace),
		objects:      *objects,
		extent:       float32(*extent),
		terrainCells: *terrainCells,
		ticks:        *ticks,
		tick:         *tick,
		moveFraction: *moveFraction,
		seed:         *seed,
		serveMetrics: *serveMetrics,
	}); err != nil {
		logging.Error("❌ Симуляция завершилась с ошибкой: %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

type simOptions struct {
	worldspace   tilecache.WorldspaceID
	objects      int
	extent       float32
	terrainCells int
	ticks        int
	tick         time.Duration
	moveFraction float64
	seed         int64
	serveMetrics bool
}

func loggingOptions(c config.LoggingConfig) logging.Options {
	opts := logging.DefaultOptions()
	opts.Dir = c.Dir
	if lvl, err := logging.ParseLevel(c.GetConsoleLevel()); err == nil {
		opts.ConsoleLevel = lvl
	}
	if lvl, err := logging.ParseLevel(c.FileLevel); err == nil {
		opts.FileLevel = lvl
	}
	if c.MaxSizeMB > 0 {
		opts.MaxSizeMB = c.MaxSizeMB
	}
	if c.MaxBackups > 0 {
		opts.MaxBackups = c.MaxBackups
	}
	if c.MaxAgeDays > 0 {
		opts.MaxAgeDays = c.MaxAgeDays
	}
	return opts
}

func newEventBus(cfg config.EventBusConfig, logger *logging.Logger) (eventbus.EventBus, error) {
	if url := cfg.GetURL(); url != "" {
		return eventbus.NewJetStreamBus(url, cfg.Stream, cfg.RetentionDuration(), logger)
	}
	logger.Info("🧠 NATS не задан, используется шина в памяти (буфер %d)", cfg.Buffer)
	return eventbus.NewMemoryBus(cfg.Buffer), nil
}

func run(ctx context.Context, cfg *config.Config, opts simOptions) error {
	start := time.Now()
	logging.Info("🧭 Запуск navtiles-sim: мир %q, объектов %d, тиков %d", opts.worldspace, opts.objects, opts.ticks)

	shutdownTelemetry := observability.ShutdownFunc(observability.NoopShutdown)
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTracing(ctx, observability.TracingOptions{
			ServiceName: cfg.Telemetry.GetServiceName(),
			Endpoint:    cfg.Telemetry.GetEndpoint(),
			Insecure:    cfg.Telemetry.GetInsecure(),
			SampleRatio: cfg.Telemetry.SampleRatio,
		}, logging.Default())
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		shutdownTelemetry = shutdown
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки телеметрии: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cacheMetrics, err := tilecache.NewMetrics(reg)
	if err != nil {
		return err
	}
	cache, err := tilecache.New(cfg.Recast, recastmesh.NewTriangleBuilder(cfg.Cache.MaxTriangles),
		tilecache.WithLogger(logging.GetCacheLogger()),
		tilecache.WithMetrics(cacheMetrics),
		tilecache.WithMaxFootprintTiles(cfg.Cache.MaxFootprintTiles),
	)
	if err != nil {
		return err
	}

	busLogger := logging.GetEventBusLogger()
	bus, err := newEventBus(cfg.EventBus, busLogger)
	if err != nil {
		return fmt.Errorf("eventbus: %w", err)
	}
	defer bus.Close()
	busMetrics, err := eventbus.NewMetricsExporter(bus, reg, time.Second)
	if err != nil {
		return err
	}
	busMetrics.Start()
	defer busMetrics.Stop()
	if _, err := eventbus.StartLoggingListener(ctx, bus, busLogger); err != nil {
		return fmt.Errorf("eventbus listener: %w", err)
	}

	updaterMetrics, err := updater.NewMetrics(reg)
	if err != nil {
		return err
	}
	sink := updater.NewMemorySink()
	var out updater.Sink = sink
	if cfg.Store.Enabled {
		store, err := meshstore.Open(cfg.Store.GetDir(), logging.GetStoreLogger())
		if err != nil {
			return fmt.Errorf("meshstore: %w", err)
		}
		defer store.Close()
		out = updater.MultiSink(sink, store)
		defer func() {
			if tiles, err := store.Tiles(context.Background(), opts.worldspace); err == nil {
				logging.Info("💾 В хранилище мешей мира %q: %d", opts.worldspace, len(tiles))
			}
		}()
	}
	upd, err := updater.New(cache, out, updater.Config{
		Workers:      cfg.Updater.Workers,
		MaxTiles:     cfg.Updater.MaxTiles,
		PollInterval: cfg.Updater.PollInterval(),
	},
		updater.WithLogger(logging.GetUpdaterLogger()),
		updater.WithMetrics(updaterMetrics),
		updater.WithEventBus(bus),
	)
	if err != nil {
		return err
	}

	if opts.serveMetrics {
		ms, err := observability.StartMetricsServer(fmt.Sprintf(":%d", cfg.Metrics.GetPort()), reg, logging.Default())
		if err != nil {
			return err
		}
		defer ms.Shutdown(context.Background())
	}

	maxTiles := cfg.Updater.MaxTiles
	if maxTiles <= 0 {
		maxTiles = updater.DefaultConfig().MaxTiles
	}
	cache.SetWorldspace(opts.worldspace)
	sc := newScenario(cache, upd, maxTiles, opts.seed, logging.Default())
	sc.movePlayer(0)
	sc.addTerrain(opts.terrainCells)
	added := sc.populate(opts.objects, opts.extent)
	logging.Info("🌲 Расставлено объектов: %d из %d", added, opts.objects)

	if err := upd.Start(ctx); err != nil {
		return err
	}
	defer upd.Stop()

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()
	for i := 1; i <= opts.ticks; i++ {
		select {
		case <-ctx.Done():
			logging.Warn("Симуляция прервана на тике %d", i)
			return nil
		case <-ticker.C:
		}
		sc.movePlayer(i)
		moved := sc.moveObjects(opts.moveFraction)
		if i%50 == 0 {
			removed := sc.removeSome(added / 100)
			sc.populate(removed, opts.extent)
		}
		logging.Trace("Тик %d: сдвинуто %d, ревизия %d", i, moved, cache.Revision())
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := upd.Wait(waitCtx); err != nil {
		return fmt.Errorf("wait updater: %w", err)
	}

	report(cache, upd, sink, opts.worldspace, bus, start)
	return nil
}

func report(cache *tilecache.TileCache, upd *updater.Updater, sink *updater.MemorySink, ws tilecache.WorldspaceID, bus eventbus.EventBus, start time.Time) {
	cs := cache.Stats()
	logging.Info("📦 Кеш: ревизия %d, поколение %d, тайлов %d, мешей %d, объектов %d, воды %d, рельефа %d",
		cs.Revision, cs.Generation, cs.Tiles, cs.CachedMeshes, cs.Objects, cs.Water, cs.Heightfields)
	logging.Info("🗺️ Окно %v, ограниченный диапазон %v", cache.Range(), cache.LimitedObjectsRange())

	us := upd.Stats()
	updates, removes := sink.Calls()
	logging.Info("🔁 Обновлятель: пачек %d, работ %d, перестроено %d, удалено %d, ошибок %d, у потребителя %d (%d в мире %q)",
		us.Batches, us.Jobs, us.Rebuilt, us.Removed, us.Failed, us.Delivered, len(sink.Tiles(ws)), ws)
	logging.Info("📥 Потребитель: UpdateTile %d, RemoveTile %d", updates, removes)

	bs := bus.Metrics()
	logging.Info("📨 Шина: опубликовано %d, доставлено %d, отброшено %d", bs.Published, bs.Consumed, bs.Dropped)

	pr, err := observability.CollectProcessReport(start)
	if err != nil {
		logging.Warn("Отчёт о процессе неполный: %v", err)
	}
	logging.Info("💻 Процесс: %v", pr)
}
