package tilecache

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики кеша тайлов. С нулевым указателем метрики не пишутся.
type Metrics struct {
	builds        prometheus.Counter
	buildFailures prometheus.Counter
	staleBuilds   prometheus.Counter
	hits          prometheus.Counter
	misses        prometheus.Counter
	evicted       prometheus.Counter
	buildDuration prometheus.Histogram

	revision     prometheus.Gauge
	tiles        prometheus.Gauge
	cachedMeshes prometheus.Gauge
	objects      prometheus.Gauge
	pending      prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "mesh_builds_total",
			Help:      "Общее число успешно построенных мешей тайлов.",
		}),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "mesh_build_failures_total",
			Help:      "Число неудачных построений меша.",
		}),
		staleBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "mesh_stale_builds_total",
			Help:      "Построенные меши, не попавшие в кеш из-за изменения тайла во время построения.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "cache_hits_total",
			Help:      "Запросы меша, обслуженные из кеша.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "cache_misses_total",
			Help:      "Запросы меша, потребовавшие построения.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "tiles_evicted_total",
			Help:      "Тайлы, вытесненные при сдвиге активного окна.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "mesh_build_duration_seconds",
			Help:      "Длительность построения меша тайла.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		revision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "revision",
			Help:      "Текущая ревизия кеша.",
		}),
		tiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "tiles",
			Help:      "Число занятых тайлов в активном окне.",
		}),
		cachedMeshes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "cached_meshes",
			Help:      "Число тайлов с построенным мешем.",
		}),
		objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "objects",
			Help:      "Число отслеживаемых объектов.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navtiles",
			Subsystem: "tilecache",
			Name:      "pending_changes",
			Help:      "Изменения тайлов, ожидающие TakeChangedTiles.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.builds, m.buildFailures, m.staleBuilds, m.hits, m.misses, m.evicted, m.buildDuration,
		m.revision, m.tiles, m.cachedMeshes, m.objects, m.pending,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register tilecache metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeBuild(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(d.Seconds())
	if err != nil {
		m.buildFailures.Inc()
		return
	}
	m.builds.Inc()
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.staleBuilds.Inc()
	}
}

func (m *Metrics) evict(n int) {
	if m != nil && n > 0 {
		m.evicted.Add(float64(n))
	}
}

func (m *Metrics) setState(s Stats) {
	if m == nil {
		return
	}
	m.revision.Set(float64(s.Revision))
	m.tiles.Set(float64(s.Tiles))
	m.cachedMeshes.Set(float64(s.CachedMeshes))
	m.objects.Set(float64(s.Objects))
	m.pending.Set(float64(s.PendingChanges))
}
