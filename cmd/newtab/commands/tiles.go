// ABOUTME: Bookmark tile commands: pin, reorder, edit and the bookmark picker
// ABOUTME: Tiles reference entries of the browser's Bookmarks file
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/bookmarks"
	"github.com/harper/newtab/internal/models"
)

// NewTilesCmd creates the tiles command group
func NewTilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Manage bookmark tiles",
		Long: `Manage the bookmark tiles of the dashboard.

Tiles pin bookmarks or folders from the browser's Bookmarks file. The
number of tiles is limited by the "tiles" setting.`,
		Example: `  newtab tiles picker
  newtab tiles add 42
  newtab tiles move <tile-id> 0`,
	}

	cmd.AddCommand(newTilesListCmd())
	cmd.AddCommand(newTilesPickerCmd())
	cmd.AddCommand(newTilesAddCmd())
	cmd.AddCommand(newTilesRemoveCmd())
	cmd.AddCommand(newTilesMoveCmd())
	cmd.AddCommand(newTilesUpdateCmd())
	cmd.AddCommand(newTilesPrefsCmd())

	return cmd
}

func printTiles(cmd *cobra.Command, tiles []models.Tile, capacity int) error {
	if wantJSON(cmd) {
		return printJSON(cmd, tiles)
	}
	if len(tiles) == 0 {
		info(cmd, "No tiles pinned (0 of %d)", capacity)
		return nil
	}

	w := newTable(cmd)
	fmt.Fprintf(w, "POS\tTITLE\tTYPE\tURL\tID\n")
	for _, t := range tiles {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			t.Position, truncate(t.Title, 30), t.Kind, orDash(truncate(t.URL, 40)), t.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	info(cmd, "\n%d of %d tile(s) used", len(tiles), capacity)
	return nil
}

func newTilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tiles in grid order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tiles, err := a.Tiles.List(ctx)
				if err != nil {
					return err
				}
				return printTiles(cmd, tiles, a.Tiles.Capacity())
			})
		},
	}
}

func newTilesPickerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "picker",
		Short: "List browser bookmarks that can be pinned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := a.Tiles.Picker(ctx)
				if err != nil {
					return err
				}
				return printPicker(cmd, entries)
			})
		},
	}
}

func printPicker(cmd *cobra.Command, entries []bookmarks.PickerEntry) error {
	if wantJSON(cmd) {
		return printJSON(cmd, entries)
	}
	w := newTable(cmd)
	fmt.Fprintf(w, "ID\tBOOKMARK\tURL\n")
	for _, e := range entries {
		title := strings.Repeat("  ", e.Depth) + e.Title
		if e.Folder {
			title += "/"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, truncate(title, 40), orDash(truncate(e.URL, 50)))
	}
	return w.Flush()
}

func newTilesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <bookmark-id>",
		Short: "Pin a bookmark or folder to the first free tile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tile, err := a.Tiles.Add(ctx, args[0])
				if err != nil {
					return err
				}
				info(cmd, "Pinned %q at position %d", tile.Title, tile.Position)
				if wantJSON(cmd) {
					return printJSON(cmd, tile)
				}
				fmt.Fprintln(cmd.OutOrStdout(), tile.ID)
				return nil
			})
		},
	}
}

func newTilesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <tile-id>",
		Short: "Unpin a tile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Tiles.Remove(ctx, args[0]); err != nil {
					return err
				}
				info(cmd, "Removed %s", args[0])
				return nil
			})
		},
	}
}

func newTilesMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <tile-id> <position>",
		Short: "Move a tile to a zero based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("position must be a number: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tiles, err := a.Tiles.Move(ctx, args[0], pos)
				if err != nil {
					return err
				}
				return printTiles(cmd, tiles, a.Tiles.Capacity())
			})
		},
	}
}

func newTilesUpdateCmd() *cobra.Command {
	var title, color, icon string
	cmd := &cobra.Command{
		Use:   "update <tile-id>",
		Short: "Change the title, color or icon of a tile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd bookmarks.TileUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("color") {
				upd.Color = &color
			}
			if cmd.Flags().Changed("icon") {
				upd.Icon = &icon
			}
			if upd.Title == nil && upd.Color == nil && upd.Icon == nil {
				return fmt.Errorf("nothing to update: pass --title, --color or --icon")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tile, err := a.Tiles.Update(ctx, args[0], upd)
				if err != nil {
					return err
				}
				info(cmd, "Updated %s", tile.ID)
				if wantJSON(cmd) {
					return printJSON(cmd, tile)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Tile title")
	cmd.Flags().StringVar(&color, "color", "", "Hex tile color")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon URL or emoji")
	return cmd
}

func newTilesPrefsCmd() *cobra.Command {
	var showTitles, openInNew bool
	var folder string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change tile grid preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Tiles.Prefs(ctx)
				if err != nil {
					return err
				}
				changed := false
				if cmd.Flags().Changed("show-titles") {
					p.ShowTitles = showTitles
					changed = true
				}
				if cmd.Flags().Changed("open-in-new-tab") {
					p.OpenInNew = openInNew
					changed = true
				}
				if cmd.Flags().Changed("folder") {
					p.FolderID = folder
					changed = true
				}
				if changed {
					if err := a.Tiles.SavePrefs(ctx, p); err != nil {
						return err
					}
					info(cmd, "Preferences saved")
				}
				if wantJSON(cmd) {
					return printJSON(cmd, p)
				}
				w := newTable(cmd)
				fmt.Fprintf(w, "show-titles\t%t\n", p.ShowTitles)
				fmt.Fprintf(w, "open-in-new-tab\t%t\n", p.OpenInNew)
				fmt.Fprintf(w, "folder\t%s\n", orDash(p.FolderID))
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&showTitles, "show-titles", true, "Show titles under tiles")
	cmd.Flags().BoolVar(&openInNew, "open-in-new-tab", false, "Open tiles in a new tab")
	cmd.Flags().StringVar(&folder, "folder", "", "Bookmark folder shown in the picker")
	return cmd
}
