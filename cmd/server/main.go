package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/eleven-am/conduit/internal/adapters/storage"
	"github.com/eleven-am/conduit/internal/api"
	"github.com/eleven-am/conduit/internal/config"
	"github.com/eleven-am/conduit/internal/core"
)

func main() {
	root := &cobra.Command{
		Use:   "conduit-server",
		Short: "Workflow orchestration and recovery engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		return err
	}
	cfg.Normalize()

	logger.Info("configuration loaded",
		"listen", cfg.Listen,
		"data_dir", cfg.DataDir,
		"runner_base_url", cfg.Engine.Runner.BaseURL,
	)

	store, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err.Error())
		return err
	}
	defer store.Close()

	manager := core.NewManager(core.Options{
		Store:  store,
		Config: &cfg.Engine,
		Logger: logger,
	})

	ctx := context.Background()
	if err := manager.Start(ctx); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	server := api.NewServer(manager.Lifecycle(), store, manager.Progress(), manager.Analytics(), logger)
	server.Register(e)

	go func() {
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err.Error())
	}
	return manager.Stop(shutdownCtx)
}
