package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bondfarm/config"
	"bondfarm/core"
	"bondfarm/core/events"
	"bondfarm/core/genesis"
	"bondfarm/gateway/middleware"
	"bondfarm/observability"
	"bondfarm/observability/logging"
	telemetry "bondfarm/observability/otel"
	"bondfarm/services/farmd/server"
	"bondfarm/storage"
)

func main() {
	var (
		cfgPath     string
		genesisPath string
	)
	flag.StringVar(&cfgPath, "config", "farmd.toml", "path to farmd configuration file")
	flag.StringVar(&genesisPath, "genesis", "", "genesis file applied to a fresh database (overrides GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("farmd: load config: %v", err)
	}
	if genesisPath != "" {
		cfg.GenesisFile = genesisPath
	}

	logger := logging.SetupWithOptions("farmd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := cfg.Telemetry.OTel("farmd", cfg.Environment)
	logger.Info("farmd starting",
		slog.String("listen", cfg.ListenAddress),
		slog.String("backend", cfg.Storage.Backend),
		slog.Bool("auth", cfg.Auth.Enabled),
		slog.Bool("traces", otelCfg.Traces),
		slog.Bool("otel_metrics", otelCfg.Metrics),
		logging.MaskHeaders("otel_headers", otelCfg.Headers),
	)
	shutdownTelemetry, err := telemetry.Init(ctx, otelCfg)
	if err != nil {
		log.Fatalf("farmd: init telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("farmd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return err
	}

	recorder := events.NewRecorder(cfg.EventHistory)
	node, err := core.NewNode(db,
		core.WithLogger(logger),
		core.WithEmitter(events.Fanout{recorder, observability.EventMetrics{}}),
		core.WithFarmParams(cfg.Farm.Params()),
		core.WithTracer(telemetry.Tracer()),
		core.WithMetrics(observability.Operations()),
	)
	if err != nil {
		db.Close()
		return err
	}
	defer node.Close()

	if err := applyGenesis(ctx, node, cfg.GenesisFile, logger); err != nil {
		return err
	}
	snapshotGauges(ctx, node, logger)

	secret, err := cfg.JWTSecret()
	if err != nil {
		return err
	}
	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  time.Duration(cfg.Auth.ClockSkewSeconds) * time.Second,
		},
		SubmitLimit: middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		ReadLimit: middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond * 5,
			Burst:             cfg.RateLimit.Burst * 5,
		},
		LogRequests: cfg.Environment == "dev",
	}, node, recorder, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func applyGenesis(ctx context.Context, node *core.Node, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	applied, err := node.GenesisApplied(ctx)
	if err != nil {
		return err
	}
	if applied {
		logger.Info("genesis already applied, skipping", slog.String("path", path))
		return nil
	}
	spec, err := genesis.Load(path)
	if err != nil {
		return err
	}
	if err := node.ApplyGenesis(ctx, spec); err != nil && !errors.Is(err, core.ErrGenesisApplied) {
		return err
	}
	logger.Info("genesis applied", slog.String("path", path), slog.Int64("time", spec.Time))
	return nil
}

// snapshotGauges seeds the level gauges that events only adjust.
func snapshotGauges(ctx context.Context, node *core.Node, logger *slog.Logger) {
	if st, err := node.FarmEmission(ctx); err == nil {
		pools, err := node.FarmPools(ctx)
		if err != nil {
			logger.Warn("read farm pools", slog.Any("error", err))
		}
		observability.Farm().Snapshot(st.EmissionRate, len(pools))
	}
	if cfg, err := node.BondConfig(ctx); err == nil {
		observability.Bond().Snapshot(cfg.BondedTotal)
	}
}
