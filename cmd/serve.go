package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventreg/internal/audit"
	"github.com/Shivanand-hulikatti/eventreg/internal/config"
	"github.com/Shivanand-hulikatti/eventreg/internal/database"
	"github.com/Shivanand-hulikatti/eventreg/internal/handler"
	"github.com/Shivanand-hulikatti/eventreg/internal/logging"
	"github.com/Shivanand-hulikatti/eventreg/internal/repository"
	"github.com/Shivanand-hulikatti/eventreg/internal/service"
	"github.com/Shivanand-hulikatti/eventreg/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and dashboard",
	Long: `Run the HTTP API and dashboard.

Environment:
  EVENTREG_PORT                  listen port (8080)
  EVENTREG_LOG_LEVEL             debug|info|warn|error (info)
  EVENTREG_LOG_FORMAT            text|json (text)
  EVENTREG_SEED                  load demo data (true)
  EVENTREG_TIMEZONE              zone for zone-less dates and messages (UTC)
  EVENTREG_TRACING               none|stdout (none)
  EVENTREG_AUDIT_POSTGRES_DSN    mirror the audit log to Postgres when set
  EVENTREG_AUDIT_BATCH_SIZE      rows per audit insert (100)
  EVENTREG_AUDIT_FLUSH_INTERVAL  max delay before a partial batch is written (1s)
  EVENTREG_AUDIT_QUEUE_SIZE      buffered audit entries before dropping (1024)`,
	RunE: runServe,
}

var (
	servePort string
	serveSeed bool
)

func registerServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&servePort, "port", "p", "", "port to listen on (overrides EVENTREG_PORT)")
	cmd.Flags().BoolVar(&serveSeed, "seed", true, "load demo data (overrides EVENTREG_SEED)")
}

func init() {
	registerServeFlags(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = serveSeed
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Audit log ─────────────────────────────────────────────────────
	auditOpts := []audit.Option{audit.WithSink(audit.NewSlogSink(logger))}
	if cfg.AuditEnabled() {
		pool, err := database.NewPool(ctx, cfg.Audit.PostgresDSN, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := audit.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("connected to postgres, mirroring audit log")

		sink := audit.NewPostgresSink(pool, logger,
			cfg.Audit.QueueSize, cfg.Audit.BatchSize, cfg.Audit.FlushInterval)
		sinkCtx, stopSink := context.WithCancel(context.Background())
		sink.Start(sinkCtx)
		defer func() {
			stopSink()
			<-sink.Done()
		}()
		auditOpts = append(auditOpts, audit.WithSink(sink))
	}
	auditLog := audit.NewLog(auditOpts...)

	// ── 2. Tracing ───────────────────────────────────────────────────────
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", "err", err)
		}
	}()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	store := repository.NewStore()
	if cfg.Seed {
		if err := store.Seed(time.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		users, events, regs := store.Counts()
		logger.Info("seeded demo data", "users", users, "events", events, "registrations", regs)
	}
	engine := service.New(store, auditLog, service.WithLocation(loc))
	eventHandler := handler.NewEventHandler(engine, auditLog, provider.Tracer())

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(eventHandler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped", "audit_entries", auditLog.Len())
	return nil
}
