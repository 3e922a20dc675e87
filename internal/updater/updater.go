// Package updater забирает изменившиеся тайлы из кеша, перестраивает их меши
// пулом воркеров в порядке близости к игроку и отдаёт результат потребителю.
package updater

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/annel0/navtiles/internal/eventbus"
	"github.com/annel0/navtiles/internal/logging"
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/tilecache"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName  = "github.com/annel0/navtiles/internal/updater"
	eventSource = "navtiles.updater"
)

var (
	ErrNilCache       = errors.New("updater: nil cache")
	ErrNilSink        = errors.New("updater: nil sink")
	ErrAlreadyStarted = errors.New("updater: already started")
)

// Cache описывает то, что обновлятелю нужно от кеша тайлов
type Cache interface {
	Version() navmesh.Version
	TakeChanges() tilecache.ChangeSet
	GetMesh(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition) *recastmesh.Mesh
}

// Config задаёт параметры обновлятеля
type Config struct {
	// Число одновременно строящихся тайлов
	Workers int
	// Сколько тайлов вокруг игрока держать у потребителя
	MaxTiles int
	// Период опроса ревизии кеша
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		MaxTiles:     512,
		PollInterval: 50 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxTiles <= 0 {
		c.MaxTiles = d.MaxTiles
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// Stats содержит накопленную статистику обновлятеля
type Stats struct {
	Batches   uint64
	Jobs      uint64
	Rebuilt   uint64
	Removed   uint64
	Failed    uint64
	Delivered int
	Pending   int
	Processed navmesh.Version
}

// BatchReport описывает одну обработанную пачку
type BatchReport struct {
	Version navmesh.Version
	Jobs    []Job
	Rebuilt int
	Removed int
	Failed  int
}

// Option настраивает Updater
type Option func(*Updater)

func WithLogger(l *logging.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(u *Updater) {
		u.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(u *Updater) {
		if t != nil {
			u.tracer = t
		}
	}
}

// WithEventBus публикует события тайлов в bus
func WithEventBus(bus eventbus.EventBus) Option {
	return func(u *Updater) {
		u.bus = bus
	}
}

// Updater доставляет перестроенные тайлы в Sink
type Updater struct {
	cache   Cache
	sink    Sink
	cfg     Config
	bus     eventbus.EventBus
	logger  *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// Не более одной пачки одновременно
	processMu sync.Mutex

	mu         sync.Mutex
	player     navmesh.TilePosition
	worldspace tilecache.WorldspaceID
	generation uint64
	processed  navmesh.Version
	delivered  map[navmesh.TilePosition]struct{}
	// Работы, завершившиеся ошибкой; повторяются со следующей пачкой
	retry  map[navmesh.TilePosition]tilecache.ChangeType
	stats  Stats
	notify chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New создаёт обновлятель. Обработка начинается после Start или вызовом Process.
func New(cache Cache, sink Sink, cfg Config, opts ...Option) (*Updater, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	u := &Updater{
		cache:     cache,
		sink:      sink,
		cfg:       cfg.withDefaults(),
		logger:    logging.Nop(),
		tracer:    otel.Tracer(tracerName),
		delivered: make(map[navmesh.TilePosition]struct{}),
		retry:     make(map[navmesh.TilePosition]tilecache.ChangeType),
		notify:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// SetPlayerTile задаёт тайл игрока для упорядочивания и отсечения работ
func (u *Updater) SetPlayerTile(tile navmesh.TilePosition) {
	u.mu.Lock()
	u.player = tile
	u.mu.Unlock()
}

func (u *Updater) PlayerTile() navmesh.TilePosition {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.player
}

// Start запускает фоновый опрос кеша
func (u *Updater) Start(ctx context.Context) error {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	if u.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	u.done = make(chan struct{})
	go u.loop(ctx, u.done)

	u.logger.Info("🚀 Обновлятель запущен: воркеров %d, лимит тайлов %d, опрос %v",
		u.cfg.Workers, u.cfg.MaxTiles, u.cfg.PollInterval)
	return nil
}

// Stop останавливает опрос и дожидается текущей пачки
func (u *Updater) Stop() {
	u.runMu.Lock()
	cancel, done := u.cancel, u.done
	u.cancel, u.done = nil, nil
	u.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	u.logger.Info("🛑 Обновлятель остановлен")
}

// Wait блокируется, пока не будет обработана версия кеша, текущая на момент вызова
func (u *Updater) Wait(ctx context.Context) error {
	target := u.cache.Version()
	for {
		u.mu.Lock()
		reached := !u.processed.Less(target)
		ch := u.notify
		u.mu.Unlock()
		if reached {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats возвращает снимок статистики
func (u *Updater) Stats() Stats {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.stats
	s.Delivered = len(u.delivered)
	s.Pending = len(u.retry)
	s.Processed = u.processed
	return s
}

func (u *Updater) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(u.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := u.Process(ctx); err != nil && ctx.Err() == nil {
				u.logger.Warn("Пачка тайлов обработана с ошибками: %v", err)
			}
		}
	}
}

// Process обрабатывает одну пачку изменений. Ошибки отдельных тайлов не прерывают пачку:
// такие тайлы повторяются в следующей, а первая ошибка возвращается.
func (u *Updater) Process(ctx context.Context) (BatchReport, error) {
	u.processMu.Lock()
	defer u.processMu.Unlock()

	// мир, версия и журнал берутся одним снимком: иначе смена мира между чтениями
	// приписала бы изменения нового мира старому
	set := u.cache.TakeChanges()
	version, ws := set.Version, set.Worldspace

	u.mu.Lock()
	player := u.player
	if version.Generation != u.generation {
		stale := u.worldspace
		tiles := maps.Clone(u.delivered)
		clear(u.delivered)
		clear(u.retry)
		u.generation = version.Generation
		u.worldspace = ws
		u.mu.Unlock()
		u.dropWorld(ctx, stale, tiles)
		u.mu.Lock()
	}
	if !set.Active || (len(set.Changes) == 0 && len(u.retry) == 0) {
		u.markProcessedLocked(version)
		u.mu.Unlock()
		return BatchReport{Version: version}, nil
	}
	retry := maps.Clone(u.retry)
	clear(u.retry)
	u.mu.Unlock()

	changes := set.Changes
	for _, ch := range changes {
		delete(retry, ch.Tile)
	}
	for tile, change := range retry {
		changes = append(changes, tilecache.TileChange{Tile: tile, Type: change})
	}

	report, err := u.runBatch(ctx, ws, version, PlanJobs(changes, player, u.cfg.MaxTiles))

	u.mu.Lock()
	u.markProcessedLocked(version)
	u.mu.Unlock()
	return report, err
}

func (u *Updater) markProcessedLocked(v navmesh.Version) {
	u.processed = v
	close(u.notify)
	u.notify = make(chan struct{})
}

func (u *Updater) runBatch(ctx context.Context, ws tilecache.WorldspaceID, version navmesh.Version, jobs []Job) (BatchReport, error) {
	report := BatchReport{Version: version, Jobs: jobs}
	if len(jobs) == 0 {
		return report, nil
	}

	ctx, span := u.tracer.Start(ctx, "updater.batch", trace.WithAttributes(
		attribute.String("worldspace", string(ws)),
		attribute.Int("jobs", len(jobs)),
		attribute.Int64("generation", int64(version.Generation)),
		attribute.Int64("revision", int64(version.Revision)),
	))
	defer span.End()

	start := time.Now()
	batchID := uuid.NewString()
	u.publishChanged(ctx, batchID, ws, version, jobs)

	var (
		mu     sync.Mutex
		failed []Job
	)
	var g errgroup.Group
	g.SetLimit(u.cfg.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			rebuilt, err := u.runJob(ctx, batchID, ws, version, job)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed = append(failed, job)
				report.Failed++
			case rebuilt:
				report.Rebuilt++
			default:
				report.Removed++
			}
			if err != nil {
				return fmt.Errorf("tile %v: %w", job.Tile, err)
			}
			return nil
		})
	}
	err := g.Wait()

	u.mu.Lock()
	if version.Generation == u.generation {
		for _, job := range failed {
			u.retry[job.Tile] = job.Change
		}
	}
	u.stats.Batches++
	u.stats.Jobs += uint64(len(jobs))
	u.stats.Rebuilt += uint64(report.Rebuilt)
	u.stats.Removed += uint64(report.Removed)
	u.stats.Failed += uint64(report.Failed)
	u.metrics.setDelivered(len(u.delivered))
	u.mu.Unlock()
	u.metrics.observeBatch(time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	u.logger.Debug("Пачка %s: работ %d, перестроено %d, удалено %d, ошибок %d за %v",
		batchID, len(jobs), report.Rebuilt, report.Removed, report.Failed, time.Since(start))
	return report, err
}

// runJob выполняет работу; rebuilt == true, если потребитель получил новый меш
func (u *Updater) runJob(ctx context.Context, batchID string, ws tilecache.WorldspaceID, version navmesh.Version, job Job) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	u.metrics.job(job.Change)

	if job.Change != tilecache.ChangeRemove {
		mesh := u.cache.GetMesh(ctx, ws, job.Tile)
		if mesh != nil {
			if err := u.sink.UpdateTile(ctx, ws, job.Tile, mesh); err != nil {
				u.metrics.failure()
				return false, err
			}
			u.setDelivered(version, job.Tile, true)
			u.publish(ctx, batchID, ws, eventbus.TypeTileRebuilt, eventbus.PriorityRebuilt, eventbus.TileRebuilt{
				Worldspace: string(ws),
				Tile:       eventbus.TileRef{X: job.Tile.X, Y: job.Tile.Y, Change: job.Change.String()},
				Generation: mesh.Version.Generation,
				Revision:   mesh.Version.Revision,
				Triangles:  mesh.TriangleCount(),
			})
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	if err := u.sink.RemoveTile(ctx, ws, job.Tile); err != nil {
		u.metrics.failure()
		return false, err
	}
	u.setDelivered(version, job.Tile, false)
	u.publish(ctx, batchID, ws, eventbus.TypeTileRemoved, eventbus.PriorityHigh, eventbus.TileRemoved{
		Worldspace: string(ws),
		Tile:       eventbus.TileRef{X: job.Tile.X, Y: job.Tile.Y, Change: tilecache.ChangeRemove.String()},
	})
	return false, nil
}

func (u *Updater) setDelivered(version navmesh.Version, tile navmesh.TilePosition, present bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if version.Generation != u.generation {
		return
	}
	if present {
		u.delivered[tile] = struct{}{}
	} else {
		delete(u.delivered, tile)
	}
}

// dropWorld убирает у потребителя все тайлы прежнего мира
func (u *Updater) dropWorld(ctx context.Context, ws tilecache.WorldspaceID, tiles map[navmesh.TilePosition]struct{}) {
	if len(tiles) == 0 {
		return
	}
	removed := 0
	for tile := range tiles {
		if err := u.sink.RemoveTile(ctx, ws, tile); err != nil {
			u.logger.Warn("Не удалось убрать тайл %v мира %q: %v", tile, ws, err)
			continue
		}
		removed++
	}
	u.mu.Lock()
	u.stats.Removed += uint64(removed)
	u.metrics.setDelivered(len(u.delivered))
	u.mu.Unlock()
	u.logger.Info("🧹 Смена мира: убрано тайлов %d из %d мира %q", removed, len(tiles), ws)
}

func (u *Updater) publishChanged(ctx context.Context, batchID string, ws tilecache.WorldspaceID, version navmesh.Version, jobs []Job) {
	if u.bus == nil {
		return
	}
	payload := eventbus.TilesChanged{
		Worldspace: string(ws),
		Generation: version.Generation,
		Revision:   version.Revision,
		Tiles:      make([]eventbus.TileRef, 0, len(jobs)),
	}
	for _, job := range jobs {
		payload.Tiles = append(payload.Tiles, eventbus.TileRef{X: job.Tile.X, Y: job.Tile.Y, Change: job.Change.String()})
	}
	u.publish(ctx, batchID, ws, eventbus.TypeTilesChanged, eventbus.PriorityBatch, payload)
}

func (u *Updater) publish(ctx context.Context, batchID string, ws tilecache.WorldspaceID, eventType string, priority int, payload any) {
	if u.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventSource, eventType, priority, payload)
	if err != nil {
		u.logger.Warn("Событие %s не создано: %v", eventType, err)
		return
	}
	ev.CorrelationID = batchID
	ev.Tenant = string(ws)
	if err := u.bus.Publish(ctx, ev); err != nil {
		u.logger.Warn("Событие %s не опубликовано: %v", eventType, err)
	}
}
