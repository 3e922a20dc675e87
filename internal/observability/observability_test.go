package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/navtiles/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "navtiles_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	ms, err := StartMetricsServer("127.0.0.1:0", reg, logging.Nop())
	require.NoError(t, err)
	defer ms.Shutdown(context.Background())

	resp, err := http.Get("http://" + ms.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "navtiles_test_total 3")
}

func TestMetricsServerBusyAddr(t *testing.T) {
	ms, err := StartMetricsServer("127.0.0.1:0", prometheus.NewRegistry(), logging.Nop())
	require.NoError(t, err)
	defer ms.Shutdown(context.Background())

	_, err = StartMetricsServer(ms.Addr(), prometheus.NewRegistry(), logging.Nop())
	assert.Error(t, err, "занятый адрес")
}

func TestCollectProcessReport(t *testing.T) {
	start := time.Now().Add(-time.Second)
	report, err := CollectProcessReport(start)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.Uptime, time.Second)
	assert.Positive(t, report.Goroutines)
	assert.Positive(t, report.HeapMB)
	assert.Contains(t, report.String(), "goroutines=")
}

func TestNoopShutdown(t *testing.T) {
	assert.NoError(t, NoopShutdown(context.Background()))
}

func TestInitTracingExportsToEndpoint(t *testing.T) {
	var exports atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		exports.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracing(context.Background(), TracingOptions{
		ServiceName: "navtiles-test",
		Endpoint:    strings.TrimPrefix(srv.URL, "http://"),
		Insecure:    true,
	}, logging.Nop())
	require.NoError(t, err)

	_, span := otel.Tracer("navtiles-test").Start(context.Background(), "tilecache.build")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Positive(t, exports.Load(), "спаны отправлены в заданный коллектор")
	assert.Equal(t, "/v1/traces", path.Load())
}

func TestTracingSampler(t *testing.T) {
	t.Run("все трассы по умолчанию", func(t *testing.T) {
		assert.Contains(t, TracingOptions{}.sampler().Description(), "AlwaysOnSampler")
		assert.Contains(t, TracingOptions{SampleRatio: 1}.sampler().Description(), "AlwaysOnSampler")
	})

	t.Run("доля трасс", func(t *testing.T) {
		assert.Contains(t, TracingOptions{SampleRatio: 0.5}.sampler().Description(), "TraceIDRatioBased{0.5}")
	})
}

func TestTracingExporterOptions(t *testing.T) {
	assert.Empty(t, TracingOptions{}.exporterOptions(), "адрес берётся из окружения экспортера")
	assert.Len(t, TracingOptions{Endpoint: "collector:4318", Insecure: true}.exporterOptions(), 2)
}
