// Package main is the entry point for the PES scan service.
// It serves one-off exact and VQE computations, runs queued potential energy
// surface scans, and keeps the scan database and result archives maintained.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/pescan/internal/config"
	"github.com/aristath/pescan/internal/di"
	"github.com/aristath/pescan/internal/server"
	"github.com/aristath/pescan/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("results_dir", cfg.ResultsDir).
		Msg("Starting pescan")

	// Databases, repositories, services, queue handlers and schedules
	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queue worker runs scans and maintenance one at a time
	container.QueueManager.Start(ctx)
	log.Info().Msg("Queue worker started")

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// No new maintenance jobs, then let the running job finish
	container.Scheduler.Stop()
	container.QueueManager.Stop()
	cancel()

	log.Info().Msg("Server stopped")
}
