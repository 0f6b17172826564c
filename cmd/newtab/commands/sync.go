// ABOUTME: Sync commands for Charm cloud synchronization of settings slots
// ABOUTME: Provides status, now, wipe, and keys management
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/charm"
	"github.com/harper/newtab/internal/config"
)

const syncAttempts = 3

var errLocalBackend = errors.New("sync needs kv_backend = \"charm\" in the config (or NEWTAB_KV_BACKEND=charm)")

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization with Charm cloud.

With kv_backend = "charm", settings and the selected background are kept
in Charm KV and sync across devices linked to the same Charm account via
SSH keys. The local backend keeps them in a JSON file in the data dir.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if a.Charm == nil {
					fmt.Fprintf(out, "Backend: local (%s)\n", a.Config.SlotsFile())
					return nil
				}

				fmt.Fprintln(out, "Backend: charm")
				fmt.Fprintf(out, "Host: %s\n", a.Charm.Host())
				fmt.Fprintf(out, "Auto-sync: %t\n", a.Charm.AutoSync())

				id, err := charm.ID()
				if err != nil {
					fmt.Fprintln(out, "Status: Not connected")
					fmt.Fprintln(out, "Run 'newtab sync keys' to check your SSH keys")
					return nil
				}
				fmt.Fprintln(out, "Status: Connected")
				fmt.Fprintf(out, "User ID: %s\n", id)
				return nil
			})
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Charm == nil {
					return errLocalBackend
				}
				info(cmd, "Syncing...")
				if err := a.Charm.SyncWithRetry(ctx, syncAttempts); err != nil {
					return fmt.Errorf("sync failed: %w", err)
				}
				info(cmd, "Sync complete")
				return nil
			})
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe all local Charm data (nuclear option)",
		Long: `Completely wipe all local Charm data.

WARNING: This deletes all locally cached slots. Your cloud data
remains intact and will be re-synced on next access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will wipe ALL local Charm data!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Charm == nil {
					return errLocalBackend
				}
				if err := a.Charm.Reset(); err != nil {
					return fmt.Errorf("failed to wipe data: %w", err)
				}
				info(cmd, "Local data wiped successfully")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := os.Setenv("CHARM_HOST", cfg.Charm.Host); err != nil {
				return fmt.Errorf("failed to set CHARM_HOST: %w", err)
			}

			keys, err := charm.AuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}
			if keys == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No authorized keys found")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Authorized SSH keys:")
			fmt.Fprintln(cmd.OutOrStdout(), keys)
			return nil
		},
	}
}
