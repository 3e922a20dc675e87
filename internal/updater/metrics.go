package updater

import (
	"fmt"
	"time"

	"github.com/annel0/navtiles/internal/tilecache"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики обновлятеля. Нулевой указатель допустим.
type Metrics struct {
	batches       prometheus.Counter
	jobs          *prometheus.CounterVec
	failures      prometheus.Counter
	batchDuration prometheus.Histogram
	delivered     prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "updater",
			Name:      "batches_total",
			Help:      "Обработанные пачки изменений тайлов.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "updater",
			Name:      "jobs_total",
			Help:      "Выполненные работы по тайлам по виду изменения.",
		}, []string{"change"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navtiles",
			Subsystem: "updater",
			Name:      "job_failures_total",
			Help:      "Работы, завершившиеся ошибкой и отложенные до следующей пачки.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "navtiles",
			Subsystem: "updater",
			Name:      "batch_duration_seconds",
			Help:      "Длительность обработки пачки.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 7),
		}),
		delivered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navtiles",
			Subsystem: "updater",
			Name:      "delivered_tiles",
			Help:      "Тайлы, чьи меши сейчас находятся у потребителя.",
		}),
	}

	for _, c := range []prometheus.Collector{m.batches, m.jobs, m.failures, m.batchDuration, m.delivered} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register updater metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.batchDuration.Observe(d.Seconds())
}

func (m *Metrics) job(change tilecache.ChangeType) {
	if m != nil {
		m.jobs.WithLabelValues(change.String()).Inc()
	}
}

func (m *Metrics) failure() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) setDelivered(n int) {
	if m != nil {
		m.delivered.Set(float64(n))
	}
}
