// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents read and edit the dashboard over stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs newtab as an MCP (Model Context Protocol) server on stdio so LLM
agents like Claude can read and change settings, tasks, tiles and
backgrounds, and render the calendar month.

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
		Example: `  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "newtab": {
  #       "command": "newtab",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		server := mcpserver.NewMCPServer(
			"newtab dashboard",
			versionInfo.Version,
			mcpserver.WithToolCapabilities(false),
		)
		mcp.RegisterTools(server, a)

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.Logger.Info("MCP server starting on stdio")

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- mcpserver.ServeStdio(server)
		}()

		select {
		case <-ctx.Done():
			a.Logger.Info("shutdown signal received")
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}
		return nil
	})
}
