package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hs170703/insightfull/pkg/api"
	"github.com/hs170703/insightfull/pkg/config"
	"github.com/hs170703/insightfull/pkg/dataset"
	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/mlmodel"
)

func newMCPCmd() *cobra.Command {
	var user, dataDir, settingsPath, logLevel string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline as MCP tools over stdio",
		Long: `Serve upload, target analysis, training and stored results as MCP tools over stdio.

The data directory uses the same layout as the HTTP server, so pointing it at
the server's STORAGE_DIR shares uploads and results with web users.

Examples:
  trainer mcp --user analyst
  trainer mcp --user analyst --data-dir development-data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol, so logs go to stderr
			logger := config.NewLogger(logLevel, "text", cmd.ErrOrStderr())

			settings, err := config.LoadPipelineSettings(settingsPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			store, err := metadatastore.NewSQLiteStore(filepath.Join(dataDir, "insightfull.db"))
			if err != nil {
				return fmt.Errorf("failed to open result store: %w", err)
			}
			defer store.Close()

			files, err := dataset.NewFileStore(filepath.Join(dataDir, "uploads"))
			if err != nil {
				return err
			}
			cache := dataset.NewCache(time.Hour, files.Load, logger)
			service := mlmodel.NewService(cache, store, settings, logger)

			mcpSrv := api.NewMCPServer(api.MCPDeps{
				Username:  user,
				Predictor: service,
				Analyzer:  service,
				Store:     store,
				Uploads:   api.NewUploader(files, cache, store, logger),
			}, version)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("MCP server started (stdio transport)", "user", user, "data_dir", dataDir)
			err = server.NewStdioServer(mcpSrv).Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "cli", "username the tools act as")
	cmd.Flags().StringVar(&dataDir, "data-dir", "insightfull-data", "directory holding insightfull.db and uploads/")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "YAML pipeline settings file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}
