// ABOUTME: Standalone MCP server binary for the dashboard with stdio transport
// ABOUTME: Loads config, opens the app and serves the dashboard tools
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/config"
	"github.com/harper/newtab/internal/mcp"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("NEWTAB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol, so logs go to stderr
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open data", "err", err)
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("newtab dashboard", "0.1.0", mcpserver.WithToolCapabilities(false))
	mcp.RegisterTools(server, a)

	logger.Info("MCP server starting on stdio", "data", cfg.DataDir)
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", "err", err)
		_ = a.Close()
		os.Exit(1)
	}
}
