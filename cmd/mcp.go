package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mediblaze/mediblaze/internal/app"
	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/mcp"
)

// runMCP serves the medical tools over MCP on stdio. Logging goes to
// stderr; stdout carries the protocol stream.
func runMCP(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", "error", err)
		}
	}()

	server, err := mcp.NewServer(mcp.Config{
		Name:    "mediblaze",
		Version: AppVersion,
		Toolkit: a.Toolkit,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build mcp server: %w", err)
	}

	logger.Info("mcp server listening on stdio")
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
