// ABOUTME: Export and import commands for the dashboard data
// ABOUTME: Whole-store JSON or YAML dumps; import accepts the legacy notes/todos shape
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/transfer"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export settings, backgrounds, tiles and tasks",
		Long: `Export every collection and the settings into one document.

Writes to stdout unless a file is given. The format follows the file
extension (.yaml or .yml for YAML) unless --format is set.`,
		Example: `  newtab export > backup.json
  newtab export backup.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveTransferFormat(format, args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				bundle, err := transfer.Export(ctx, a.Transfer())
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return transfer.Write(cmd.OutOrStdout(), bundle, f)
				}

				out, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", args[0], err)
				}
				if err := transfer.Write(out, bundle, f); err != nil {
					_ = out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
				info(cmd, "Exported %d background(s), %d tile(s), %d task(s) to %s",
					len(bundle.Backgrounds), len(bundle.Bookmarks), len(bundle.Tasks), args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "as", "", "Document format: json or yaml")
	return cmd
}

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a previously exported document",
		Long: `Import a document written by export. Files from older versions with
separate "notes" and "todos" lists are converted to tasks.

The whole document is checked before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveTransferFormat(format, args)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer file.Close()
				in = file
			}
			bundle, err := transfer.Read(in, f)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := transfer.Import(ctx, a.Transfer(), bundle)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return printJSON(cmd, res)
				}
				if res.Legacy {
					info(cmd, "Converted legacy notes and todos")
				}
				info(cmd, "Imported %d background(s), %d tile(s), %d task(s)",
					res.Backgrounds, res.Bookmarks, res.Tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "as", "", "Document format: json or yaml")
	return cmd
}

func resolveTransferFormat(flag string, args []string) (transfer.Format, error) {
	if flag != "" {
		return transfer.ParseFormat(flag)
	}
	if len(args) > 0 && args[0] != "-" {
		return transfer.FormatFromPath(args[0]), nil
	}
	return transfer.FormatJSON, nil
}
