package main

import (
	"context"
	"errors"
	"os"
	"time"

	"hse/internal/amqp"
	"hse/internal/cli"
	"hse/internal/config"
	applog "hse/internal/log"
	gsheet "hse/internal/sheets/google"
	"hse/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting hse-worker")

	cfg := cli.LoadAndValidateConfig(logger, func(c *config.Config) error {
		return errors.Join(c.ValidateStore(), c.ValidateWorker())
	})

	// The worker only reads records back; it neither publishes events nor seeds.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	storeCfg.SeedSample = false
	result := cli.OpenBackend(context.Background(), logger, &storeCfg)

	mirror, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		_ = result.Cleanup()
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		_ = result.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close data backend", applog.FieldError, err)
		}
	})

	syncWorker := worker.NewSyncWorker(result.Backend, mirror, logger)
	if err := syncWorker.Run(ctx, amqpClient); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		_ = amqpClient.Close()
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
