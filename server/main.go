// Command ostd serves the opportunity solution tree API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/ost"
	"github.com/meikuraledutech/ost/api"
	"github.com/meikuraledutech/ost/config"
	"github.com/meikuraledutech/ost/logging"
	"github.com/meikuraledutech/ost/memory"
	"github.com/meikuraledutech/ost/postgres"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ostd",
		Short:        "Opportunity solution tree API server",
		SilenceUsage: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Manage the database schema",
	}
	schema.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create all tables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, func(ctx context.Context, s ost.Store, _ *config.Config, _ *slog.Logger) error {
					return s.CreateSchema(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop all tables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, func(ctx context.Context, s ost.Store, _ *config.Config, _ *slog.Logger) error {
					return s.DropSchema(ctx)
				})
			},
		},
	)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, serve)
		},
	}

	root.AddCommand(serve, schema)
	return root
}

// withStore loads the configuration, opens the configured store and runs fn.
func withStore(cmd *cobra.Command, fn func(context.Context, ost.Store, *config.Config, *slog.Logger) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, level, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := logging.WithLogger(cmd.Context(), logger)
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(ctx, store, cfg, logger)
}

func openStore(ctx context.Context, cfg *config.Config) (ost.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return pg, pg.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func serve(ctx context.Context, store ost.Store, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
	}
	app := api.New(store,
		api.WithLogger(logger),
		api.WithTimeout(cfg.RequestTimeout),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	logger.Info("listening", "addr", cfg.Addr, "store", cfg.Store)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
