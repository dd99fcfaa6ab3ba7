package main

import (
	"context"
	"fmt"

	"billdash/internal/backend"
	"billdash/internal/cli"
	"billdash/internal/config"
	apphttp "billdash/internal/http"
	applog "billdash/internal/log"
	"billdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(logger, "Invalid configuration", err)
	}
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	err = run(ctx, cfg, logger)
	cancel()
	if err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until ctx is cancelled. The backend is closed on every return path.
func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	svc := services.NewBillService(result.Backend, logger)
	srv, err := apphttp.NewServer(svc, apphttp.Options{
		Addr:               cfg.Addr(),
		Logger:             logger,
		CacheTTL:           cfg.CacheTTL,
		CacheSize:          cfg.CacheSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              result.Backend.Ping,
	})
	if err != nil {
		return fmt.Errorf("create HTTP server: %w", err)
	}

	logger.Info("Starting billdash", "port", cfg.Port, "backend", cfg.DataBackend)
	return srv.Run(ctx, cfg.ShutdownTimeout)
}
