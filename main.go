package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/config"
	"github.com/giygas/prescriptions-api/data"
	"github.com/giygas/prescriptions-api/interfaces"
	"github.com/giygas/prescriptions-api/logging"
	"github.com/giygas/prescriptions-api/render"
	"github.com/giygas/prescriptions-api/scheduler"
	"github.com/giygas/prescriptions-api/server"
	"github.com/giygas/prescriptions-api/validation"
)

var _ interfaces.Parser = (*catalogparser.CatalogParser)(nil)

func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred cleanup has run
func run() int {
	if err := config.LoadEnvFile(); err != nil {
		logging.Error("Failed to load .env file", "error", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Invalid configuration", "error", err)
		return 1
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() {
		if err := logging.Close(); err != nil {
			logging.Warn("Failed to close log file", "error", err)
		}
	}()

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	parser := catalogparser.NewCatalogParser(cfg.DrugsFile, cfg.DrugsURL)
	sched := scheduler.NewScheduler(dataContainer, parser, validation.NewDataValidator(), cfg.RefreshAt)

	// Requests get a 503 until the first catalog is in
	loadErr := make(chan error, 1)
	go func() {
		if err := sched.Start(); err != nil {
			loadErr <- fmt.Errorf("drug catalog %s could not be loaded: %w", cfg.DrugsFile, err)
		}
	}()
	defer sched.Stop()

	srv, err := server.NewServer(cfg, dataContainer,
		render.NewTextRenderer(),
		render.NewChromiumPDFRenderer(cfg.ChromePath),
	)
	if err != nil {
		logging.Error("Failed to create server", "error", err)
		return 1
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	if err := waitForShutdown(quit, loadErr, serverErr); err != nil {
		logging.Error("Shutting down", "error", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
		exitCode = 1
	}
	return exitCode
}

// waitForShutdown blocks until a signal arrives or the catalog load or the
// listener fails. A signal yields nil.
func waitForShutdown(quit <-chan os.Signal, loadErr, serverErr <-chan error) error {
	select {
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
		return nil
	case err := <-loadErr:
		return err
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	}
}
