package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/navtiles/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const tracingShutdownTimeout = 5 * time.Second

// ShutdownFunc завершает телеметрию, отправляя накопленные спаны
type ShutdownFunc func(context.Context) error

// TracingOptions описывает экспорт спанов построения тайлов и пачек обновлятеля
type TracingOptions struct {
	ServiceName string
	// Endpoint: host:port коллектора; пусто: адрес из OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	Endpoint string
	Insecure bool
	// SampleRatio: доля корневых трасс, 0 или 1: все
	SampleRatio float64
}

func (o TracingOptions) exporterOptions() []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if o.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(o.Endpoint))
	}
	if o.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// sampler сохраняет решение родителя, чтобы спаны кеша не отрывались от пачки обновлятеля
func (o TracingOptions) sampler() sdktrace.Sampler {
	if o.SampleRatio <= 0 || o.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
}

// InitTracing ставит глобальный TracerProvider с OTLP HTTP экспортером.
// Экспортер подключается лениво: недоступный коллектор не мешает старту.
func InitTracing(ctx context.Context, opts TracingOptions, logger *logging.Logger) (ShutdownFunc, error) {
	exp, err := otlptracehttp.New(ctx, opts.exporterOptions()...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(opts.sampler()),
	)
	otel.SetTracerProvider(tp)

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "env/default"
	}
	logger.Info("📡 Трейсы тайлов: service=%s, коллектор %s, insecure=%v", opts.ServiceName, endpoint, opts.Insecure)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, tracingShutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// NoopShutdown используется, когда телеметрия выключена
func NoopShutdown(context.Context) error { return nil }
