package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/switchboard/internal/app"
	"github.com/ent0n29/switchboard/internal/config"
	"github.com/ent0n29/switchboard/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logging.Init(level, cfg.LogFormat)
	logger := logging.New("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}

	built.History.StartJanitor(ctx, cfg.SessionSweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.BindAddr, "oracle", built.Status["oracle_mode"], "store", built.Status["ticket_store_mode"])
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		built.Notifier.Run(gctx)
		return nil
	})
	if built.Retention != nil {
		g.Go(func() error {
			logger.Info("turn retention scheduled", "schedule", cfg.RetentionSchedule, "days", cfg.TurnRetentionDays)
			return built.Retention.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "error", err)
			_ = httpServer.Close()
		}
		return nil
	})

	runErr := g.Wait()
	if err := built.Cleanup(); err != nil {
		logger.Error("cleanup failed", "error", err)
	}
	if runErr != nil {
		logger.Error("server stopped", slog.Any("error", runErr))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
