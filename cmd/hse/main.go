package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"hse/internal/cli"
	"hse/internal/config"
	apphttp "hse/internal/http"
	applog "hse/internal/log"
	"hse/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	result := cli.OpenBackend(context.Background(), logger, cfg)

	dialect := result.Dialect
	if dialect == "" {
		dialect = storage.SQLite
	}
	srv, err := apphttp.NewServer(":"+cfg.Port, result.Backend, apphttp.Options{
		Dialect:            dialect,
		SessionSecret:      cfg.SessionSecret,
		SecureCookie:       cfg.SessionSecureCookie,
		SessionMaxAge:      cfg.SessionMaxAge,
		SQLImportEnabled:   cfg.SQLImportEnabled,
		MaxUploadBytes:     cfg.MaxUploadBytes(),
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		_ = result.Cleanup()
		os.Exit(1)
	}

	// Configure server timeouts and limits. Writes get room for a
	// spreadsheet import.
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 45 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close data backend", applog.FieldError, err)
		}
	})

	logger.Info("Starting hse server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sql_import", cfg.SQLImportEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
