package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/annel0/navtiles/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer отдаёт /metrics для переданного реестра
type MetricsServer struct {
	srv    *http.Server
	ln     net.Listener
	logger *logging.Logger
	done   chan struct{}
}

// StartMetricsServer начинает слушать addr (например, ":2112").
// Метод неблокирующий: HTTP-сервер работает в отдельной горутине.
func StartMetricsServer(addr string, gatherer prometheus.Gatherer, logger *logging.Logger) (*MetricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	ms := &MetricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(ms.done)
		logger.Info("📈 Prometheus /metrics доступен по адресу %s", ln.Addr())
		if err := ms.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return ms, nil
}

// Addr возвращает фактический адрес сервера
func (ms *MetricsServer) Addr() string {
	return ms.ln.Addr().String()
}

// Shutdown останавливает сервер
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	err := ms.srv.Shutdown(ctx)
	<-ms.done
	return err
}
