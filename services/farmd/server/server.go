package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bondfarm/core"
	"bondfarm/core/events"
	"bondfarm/gateway/middleware"
	"bondfarm/observability"
)

// maxBodyBytes bounds a submitted envelope.
const maxBodyBytes = 64 << 10

// Route groups used for rate limits and request metrics.
const (
	groupSubmit = "submit"
	groupRead   = "read"
)

// ScopeSubmit is the token scope required to post envelopes.
const ScopeSubmit = "submit"

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	Auth          middleware.AuthConfig
	SubmitLimit   middleware.RateLimit
	ReadLimit     middleware.RateLimit
	CORS          middleware.CORSConfig
	LogRequests   bool
}

// Server exposes the node over JSON HTTP.
type Server struct {
	cfg      Config
	node     *core.Node
	recorder *events.Recorder
	logger   *slog.Logger
	router   http.Handler
}

// New constructs the HTTP API over node. recorder, when set, backs the
// events endpoint.
func New(cfg Config, node *core.Node, recorder *events.Recorder, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, fmt.Errorf("node required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Auth.Enabled && len(cfg.Auth.HMACSecret) == 0 {
		return nil, fmt.Errorf("auth enabled without a secret")
	}
	srv := &Server{cfg: cfg, node: node, recorder: recorder, logger: logger}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	auth := middleware.NewAuthenticator(s.cfg.Auth, s.logger)
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		groupSubmit: s.cfg.SubmitLimit,
		groupRead:   s.cfg.ReadLimit,
	}, s.logger)
	limiter.OnThrottle(func(key string) {
		observability.ModuleMetrics().RecordThrottle(key, "rate_limit")
	})
	obs := middleware.NewObservability(middleware.ObservabilityConfig{LogRequests: s.cfg.LogRequests}, s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(s.cfg.CORS))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", obs.MetricsHandler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(submit chi.Router) {
			submit.Use(limiter.Middleware(groupSubmit))
			submit.Use(obs.Middleware(groupSubmit))
			submit.Use(auth.Middleware(ScopeSubmit))
			submit.Post("/submit", s.handleSubmit)
		})
		v1.Group(func(read chi.Router) {
			read.Use(limiter.Middleware(groupRead))
			read.Use(obs.Middleware(groupRead))
			read.Get("/operations", s.handleOperations)
			read.Get("/events", s.handleEvents)
			read.Get("/accounts/{address}/nonce", s.handleNonce)
			read.Get("/bank/balances/{address}/{asset}", s.handleBalance)
			read.Get("/admin/paused/{module}", s.handlePaused)
			read.Get("/swap/pools/{id}", s.handleSwapPool)
			read.Get("/swap/pools/{id}/quote", s.handleSwapQuote)
			read.Get("/farm/emission", s.handleFarmEmission)
			read.Get("/farm/pools", s.handleFarmPools)
			read.Get("/farm/pools/{asset}", s.handleFarmPool)
			read.Get("/farm/pools/{asset}/stakers/{address}", s.handleFarmStaker)
			read.Get("/bond/config", s.handleBondConfig)
			read.Get("/bond/positions/{address}", s.handleBondPosition)
		})
	})

	return otelhttp.NewHandler(r, "farmd", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return r.Method + " " + r.URL.Path
	}))
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", slog.String("address", s.cfg.ListenAddress))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	applied, err := s.node.GenesisApplied(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "genesis": applied})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
			slog.Any("error", err))
	}
	s.writeJSON(w, status, errorBody{Error: err.Error(), Code: codeFor(err)})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: message, Code: "invalid_parameter"})
}

func trimParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}
