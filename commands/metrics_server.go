package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-referee/metrics"
)

// metricsServer exposes the default Prometheus registry on /metrics.
type metricsServer struct {
	server *http.Server
	logger *slog.Logger
}

// newMetrics registers the instruments on the default registry and, when
// address is set, starts serving them.
func newMetrics(address string, logger *slog.Logger) (*metrics.Metrics, *metricsServer) {
	m := metrics.New(prometheus.DefaultRegisterer)

	if address == "" {
		return m, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &metricsServer{
		server: &http.Server{
			Addr:         address,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	s.logger.Info("Starting metrics server", slog.String("address", address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", slog.String("error", err.Error()))
		}
	}()

	return m, s
}

func (s *metricsServer) Stop() {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("Error while stopping metrics server", slog.String("error", err.Error()))
	}
}
