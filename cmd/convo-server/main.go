// Command convo-server serves conversation sessions over HTTP.
//
// Transcripts are kept in memory unless DATABASE_URL points at PostgreSQL,
// in which case they are stored by pgmemory, keyed by session ID.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/internal/config"
	"github.com/leofalp/convo/internal/logging"
	"github.com/leofalp/convo/internal/server"
	"github.com/leofalp/convo/internal/session"
	"github.com/leofalp/convo/providers/memory/pgmemory"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "convo-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("convo-server", flag.ContinueOnError)
	envFile := flags.String("env", ".env", "dotenv file to load")
	addr := flags.String("addr", "", "listen address (overrides HTTP_ADDR)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	factory, registryOpts, closeStore, err := newFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	e := server.New(server.NewHandler(session.NewRegistry(factory, registryOpts...), logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("convo-server listening",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("model", cfg.Generation.Model),
			slog.Bool("persistent", cfg.DatabaseURL != ""),
		)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("convo-server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newFactory returns the session client factory, the registry options and a
// function releasing their resources. With a DATABASE_URL the schema is
// created up front and sessions stored by an earlier run can be reopened.
func newFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Factory, []session.Option, func(), error) {
	clientOptions := cfg.ClientOptions(logger)

	if cfg.DatabaseURL == "" {
		factory := func(_ context.Context, _ string) (*conversation.Client, error) {
			return conversation.New(cfg.Provider(), clientOptions...)
		}
		return factory, nil, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := pgmemory.New(pool, "").EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	factory := func(_ context.Context, id string) (*conversation.Client, error) {
		opts := append([]conversation.Option{conversation.WithMemory(pgmemory.New(pool, id))}, clientOptions...)
		return conversation.New(cfg.Provider(), opts...)
	}
	opts := []session.Option{session.WithStore(pgmemory.NewCatalog(pool))}
	return factory, opts, pool.Close, nil
}
