package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xtamizh/scrapebase/internal/config"
	"github.com/0xtamizh/scrapebase/internal/logging"
	"github.com/0xtamizh/scrapebase/internal/service"
)

// loadConfig reads the configured file (or defaults) and applies a
// command-line log-level override, mirroring the teacher's
// PersistentPreRunE config-then-logging bootstrap.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		LogDir:     cfg.Logging.LogDir,
		MaxSize:    cfg.Logging.Rotation.MaxSize,
		MaxBackups: cfg.Logging.Rotation.MaxBackups,
		MaxAge:     cfg.Logging.Rotation.MaxAge,
		Compress:   cfg.Logging.Rotation.Compress,
		Console:    true,
	}); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	return cfg, nil
}

// withService loads config, starts a Service, installs a SIGINT/SIGTERM
// handler that stops new admission and drains in-flight work, runs fn,
// and always shuts down the service afterward.
func withService(fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("constructing service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.RequestTimeout)
		defer cancel()
		_ = svc.Shutdown(shutdownCtx)
	}()

	return fn(ctx, svc)
}
