// ABOUTME: Root command, global flags and service start-up for the newtab CLI
// ABOUTME: Loads .env and config, builds the logger and opens the app per command
package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/config"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
███╗   ██╗███████╗██╗    ██╗████████╗ █████╗ ██████╗
████╗  ██║██╔════╝██║    ██║╚══██╔══╝██╔══██╗██╔══██╗
██╔██╗ ██║█████╗  ██║ █╗ ██║   ██║   ███████║██████╔╝
██║╚██╗██║██╔══╝  ██║███╗██║   ██║   ██╔══██║██╔══██╗
██║ ╚████║███████╗╚███╔███╔╝   ██║   ██║  ██║██████╔╝
╚═╝  ╚═══╝╚══════╝ ╚══╝╚══╝    ╚═╝   ╚═╝  ╚═╝╚═════╝
`

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newtab",
		Short: "Personal new-tab dashboard from the terminal",
		Long: banner + `
Manage the data behind your new-tab dashboard: calendar and theme
settings, bookmark tiles, notes and todos, and background images.

Data lives in local SQLite databases; settings can sync through Charm.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet cannot be used together")
			}
			switch outputFormat {
			case "auto", "table", "json":
			default:
				return fmt.Errorf("unknown --format %q (want auto, table or json)", outputFormat)
			}
			// .env is optional
			_ = godotenv.Load()
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table or json")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/newtab/config.toml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewSettingsCmd())
	cmd.AddCommand(NewBackgroundCmd())
	cmd.AddCommand(NewTilesCmd())
	cmd.AddCommand(NewTasksCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// logLevel applies --verbose and --quiet over the configured level.
func logLevel(cfg *config.Config) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "error"
	default:
		return cfg.LogLevel
	}
}

// withApp opens the configured app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := app.NewLogger(cmd.ErrOrStderr(), logLevel(cfg))
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open data: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}()
	return fn(ctx, a)
}
