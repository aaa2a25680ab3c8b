package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookmarks/internal/app"
	"bookmarks/internal/config"
	"bookmarks/internal/logger"
	"bookmarks/internal/tracing"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		_ = logger.Init("info", "json")
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		_ = logger.Init("info", "json")
		logger.Fatal("invalid logger configuration", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.TracingEnabled, cfg.OTELServiceName)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("bookmarks started", zap.String("port", cfg.AppPort))

	<-ctx.Done() // wait for Ctrl+C

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}

	logger.Info("bookmarks stopped cleanly")
}
