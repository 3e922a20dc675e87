package tilecache

import (
	"github.com/annel0/navtiles/internal/logging"
	"go.opentelemetry.io/otel/trace"
)

// Option настраивает TileCache
type Option func(*TileCache)

// WithLogger задаёт логгер кеша
func WithLogger(l *logging.Logger) Option {
	return func(c *TileCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics включает Prometheus-метрики
func WithMetrics(m *Metrics) Option {
	return func(c *TileCache) {
		c.metrics = m
	}
}

// WithTracer задаёт трейсер для спанов построения мешей
func WithTracer(t trace.Tracer) Option {
	return func(c *TileCache) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMaxFootprintTiles задаёт предел тайлов окна, которые содержимое занимает строками.
// Более крупное содержимое строк не создаёт и попадает в меши уже занятых тайлов.
func WithMaxFootprintTiles(n int) Option {
	return func(c *TileCache) {
		if n > 0 {
			c.maxFootprint = uint64(n)
		}
	}
}
