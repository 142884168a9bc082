package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hs170703/insightfull/pkg/api"
	"github.com/hs170703/insightfull/pkg/auth"
	"github.com/hs170703/insightfull/pkg/config"
	"github.com/hs170703/insightfull/pkg/dataset"
	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/mlmodel"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("starting inSightFull server", "environment", cfg.Environment)

	settings, err := config.LoadPipelineSettings(cfg.PipelineConfigPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	dbPath := filepath.Join(cfg.StorageDir, "insightfull.db")
	store, err := metadatastore.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite storage: %w", err)
	}
	defer store.Close()
	logger.Info("initialized SQLite storage", "path", dbPath)

	files, err := dataset.NewFileStore(filepath.Join(cfg.StorageDir, "uploads"))
	if err != nil {
		return err
	}
	cache := dataset.NewCache(cfg.DatasetCacheTTL, files.Load, logger)
	if err := cache.Start(cfg.DatasetCacheSweep); err != nil {
		return err
	}
	defer cache.Stop()

	service := mlmodel.NewService(cache, store, settings, logger)
	authManager := auth.NewAuthManager(cfg.JWTSecret, cfg.AccessTokenTTL, store, cfg.LoginRateLimit)
	if cfg.JWTSecret == "supersecretkey" {
		logger.Warn("JWT_SECRET is the built-in default, set it outside development")
	}

	uploads := api.NewUploader(files, cache, store, logger)
	server := api.NewServer(authManager, service, store, uploads, api.Options{
		Port:               cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
