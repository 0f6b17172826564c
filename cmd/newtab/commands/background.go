// ABOUTME: Background commands for the image library and the selected background
// ABOUTME: Adds URLs or uploads, selects colors, gradients or images, rebuilds thumbnails
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/background"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/thumbnail"
)

// NewBackgroundCmd creates the background command group
func NewBackgroundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "background",
		Aliases: []string{"bg"},
		Short:   "Manage dashboard backgrounds",
		Long: `Manage dashboard backgrounds.

The background is a hex color, a CSS linear-gradient, an image URL or a
saved image from the library. Uploaded images are copied into the data
directory and get a thumbnail.`,
		Example: `  newtab background add ~/Pictures/mountains.jpg
  newtab background add https://example.com/sky.png
  newtab background select '#0f172a'
  newtab background select 'linear-gradient(135deg, #667eea, #764ba2)'
  newtab background select bg-4f0c2e1a9b7d3c55`,
	}

	cmd.AddCommand(newBackgroundListCmd())
	cmd.AddCommand(newBackgroundAddCmd())
	cmd.AddCommand(newBackgroundDeleteCmd())
	cmd.AddCommand(newBackgroundSelectCmd())
	cmd.AddCommand(newBackgroundCurrentCmd())
	cmd.AddCommand(newBackgroundThumbsCmd())
	cmd.AddCommand(newBackgroundProcessCmd())

	return cmd
}

func newBackgroundListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved backgrounds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				list, err := a.Backgrounds.List(ctx)
				if err != nil {
					return err
				}
				selected := ""
				if ref, err := a.Backgrounds.Selected(); err == nil && ref != nil {
					selected = ref.String()
				}
				return printBackgrounds(cmd, list, selected)
			})
		},
	}
}

func printBackgrounds(cmd *cobra.Command, list []models.Background, selected string) error {
	if wantJSON(cmd) {
		return printJSON(cmd, list)
	}
	if len(list) == 0 {
		info(cmd, "No backgrounds saved")
		return nil
	}

	w := newTable(cmd)
	fmt.Fprintf(w, " \tID\tTYPE\tNAME\tADDED\tURL\n")
	for _, bg := range list {
		mark := " "
		if bg.ID == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, bg.ID, bg.Kind, orDash(bg.Name), formatTime(bg.CreatedAt.Time), truncate(bg.URL, 50))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	info(cmd, "\nTotal: %d background(s)", len(list))
	return nil
}

func newBackgroundAddCmd() *cobra.Command {
	var selectIt bool
	cmd := &cobra.Command{
		Use:   "add <file|url>",
		Short: "Save an image file or URL to the library",
		Long: `Save an image to the library. Existing files are uploaded (png, jpg,
gif or webp, size limited by max_upload_bytes); anything else must be an
absolute http(s) URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					bg  *models.Background
					err error
				)
				if _, statErr := os.Stat(args[0]); statErr == nil {
					bg, err = a.Backgrounds.AddFile(ctx, args[0])
				} else {
					bg, err = a.Backgrounds.AddURL(ctx, args[0])
				}
				if err != nil {
					return err
				}
				info(cmd, "Saved background %s", bg.ID)
				if selectIt {
					if _, err := a.Backgrounds.Select(ctx, bg.ID); err != nil {
						return err
					}
					info(cmd, "Selected %s", bg.ID)
				}
				if wantJSON(cmd) {
					return printJSON(cmd, bg)
				}
				fmt.Fprintln(cmd.OutOrStdout(), bg.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&selectIt, "select", false, "Select the new background")
	return cmd
}

func newBackgroundDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a saved background and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Backgrounds.Delete(ctx, args[0]); err != nil {
					return err
				}
				info(cmd, "Deleted %s", args[0])
				return nil
			})
		},
	}
}

func newBackgroundSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <color|gradient|id|url>",
		Short: "Select the dashboard background",
		Long: `Select the dashboard background. An empty argument clears the
selection so the background color setting shows through.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ref, err := a.Backgrounds.Select(ctx, args[0])
				if err != nil {
					return err
				}
				if ref == nil {
					info(cmd, "Background selection cleared")
				} else {
					info(cmd, "Selected %s", ref)
				}
				return printCurrent(ctx, cmd, a)
			})
		},
	}
}

func newBackgroundCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show what the dashboard paints as background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return printCurrent(ctx, cmd, a)
			})
		},
	}
}

func currentBackground(ctx context.Context, a *app.App) background.Renderable {
	fallback := background.Renderable{
		Kind:  background.RenderColor,
		Value: a.Settings.Snapshot().BackgroundColor,
	}
	return a.Backgrounds.Current(ctx, fallback)
}

func printCurrent(ctx context.Context, cmd *cobra.Command, a *app.App) error {
	r := currentBackground(ctx, a)
	if wantJSON(cmd) {
		return printJSON(cmd, r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Kind, r.Value)
	return nil
}

func newBackgroundThumbsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thumbs",
		Short: "Regenerate thumbnails of uploaded backgrounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Backgrounds.RegenerateThumbnails(ctx)
				if err != nil {
					return err
				}
				info(cmd, "Regenerated %d thumbnail(s)", n)
				return nil
			})
		},
	}
}

func newBackgroundProcessCmd() *cobra.Command {
	var scale float64
	cmd := &cobra.Command{
		Use:   "process-folder <dir>",
		Short: "Clean image names and create thumbnails for a folder",
		Long: `Rename the images in a folder to clean slug names, remove stale
thumbnails and write a thumbnail next to every image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := thumbnail.New(scale, nil)
			report, err := gen.ProcessFolder(args[0])
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd, report)
			}
			info(cmd, "Renamed %d, created %d thumbnail(s), removed %d stale, %d failed",
				len(report.Renamed), len(report.Created), len(report.Removed), len(report.Failed))
			return nil
		},
	}
	cmd.Flags().Float64Var(&scale, "scale", thumbnail.DefaultScale, "Thumbnail scale factor")
	return cmd
}
