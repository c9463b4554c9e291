package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bondfarm/observability"
)

type ObservabilityConfig struct {
	LogRequests bool
}

// Observability records per-module request metrics and access logs. Tracing
// is provided by otelhttp around the whole router.
type Observability struct {
	cfg     ObservabilityConfig
	logger  *slog.Logger
	metrics interface {
		Observe(module, method string, status int, duration time.Duration)
	}
}

func NewObservability(cfg ObservabilityConfig, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observability{cfg: cfg, logger: logger, metrics: observability.ModuleMetrics()}
}

func (o *Observability) Middleware(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)
			o.metrics.Observe(module, r.Method, recorder.status, elapsed)
			if o.cfg.LogRequests {
				o.logger.Info("request served",
					slog.String("module", module),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", recorder.status),
					slog.Duration("duration", elapsed),
					slog.String("request_id", RequestIDFrom(r.Context())),
				)
			}
		})
	}
}

func (o *Observability) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
