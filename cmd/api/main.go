// Package main runs the editor API as a standalone HTTP server. Unlike the
// Lambda entry points it may also sweep idle edit sessions itself.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cmseditor/application/commands"
	"cmseditor/application/commands/bus"
	"cmseditor/application/commands/handlers"
	"cmseditor/infrastructure/config"
	"cmseditor/infrastructure/di"
)

const (
	sweepUser     = "session-sweeper"
	sweepBatch    = 200
	drainDeadline = 30 * time.Second
)

// commandSender is the part of the command bus the sweeper needs
type commandSender interface {
	Send(ctx context.Context, cmd bus.Command) (interface{}, error)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	container.Start(ctx)

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: container.Router.Setup(),
		// saves of large xml pages are slow to upload
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting editor API",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.StorageBackend),
			zap.Duration("session_max_idle", cfg.SessionMaxIdle),
			zap.Duration("session_sweep", cfg.SessionSweep),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.SessionSweep > 0 {
		g.Go(func() error {
			sweepSessions(gctx, container.CommandBus, cfg.SessionSweep, cfg.SessionMaxIdle, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down editor API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainDeadline)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Editor API stopped with error", zap.Error(err))
	}

	// the outbox flushes events of the last saves before stores close
	container.Stop()
	cleanup()
	_ = logger.Sync()
}

// sweepSessions closes sessions idle longer than maxIdle every interval
// until ctx is done. A failed sweep is retried on the next tick.
func sweepSessions(ctx context.Context, sender commandSender, interval, maxIdle time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, sender, maxIdle, logger)
		}
	}
}

func sweepOnce(ctx context.Context, sender commandSender, maxIdle time.Duration, logger *zap.Logger) {
	res, err := sender.Send(ctx, commands.CleanupStaleSessionsCommand{
		MaxIdle:   maxIdle,
		Limit:     sweepBatch,
		RequestBy: sweepUser,
	})
	if err != nil {
		logger.Error("Session sweep failed", zap.Error(err))
		return
	}
	if result, ok := res.(*handlers.CleanupResult); ok && result.Examined > 0 {
		logger.Info("Session sweep finished",
			zap.Int("examined", result.Examined),
			zap.Int("closed", result.Closed),
			zap.Int("failed", len(result.Failed)),
		)
	}
}
