package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"hse/internal/backend"
	"hse/internal/config"
	applog "hse/internal/log"
)

// newRootCmd builds the command tree. Store settings come from the same
// environment variables the server reads.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hsectl",
		Short:         "Administer the HSE dashboard store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newUserCmd(),
		newImportCmd(),
		newSQLCmd(),
		newSeedCmd(),
	)
	return root
}

// commandLogger writes to the command's stderr so stdout carries only
// results.
func commandLogger(cmd *cobra.Command, level string) *applog.Logger {
	lvl := applog.ParseLevel(level)
	return applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentCLI,
		Handler:   slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}),
	})
}

type backendRunner func(ctx context.Context, cmd *cobra.Command, args []string, b *backend.BackendResult) error

// withBackend loads the store configuration, opens the backend (which
// applies migrations) and hands it to run.
func withBackend(run backendRunner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		// Admin commands never publish events or seed implicitly.
		cfg.AMQPURL = ""
		cfg.SeedSample = false

		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		logger := commandLogger(cmd, cfg.LogLevel)
		result, err := backend.NewFactory(logger.Logger).CreateBackend(cmd.Context(), backendCfg)
		if err != nil {
			return err
		}
		defer func() { _ = result.Cleanup() }()

		return run(cmd.Context(), cmd, args, result)
	}
}
