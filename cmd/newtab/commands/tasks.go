// ABOUTME: Task commands for the unified notes and todos board
// ABOUTME: Add, edit, toggle, delete and the one-time legacy migration
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/tasks"
)

var (
	taskColor string
	taskEmoji string
)

// NewTasksCmd creates the tasks command group
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage notes and todos",
		Long: `Manage the notes and todos shown on the dashboard.

Notes are colored cards with an emoji; todos can also be completed.`,
		Example: `  newtab tasks todo buy milk
  newtab tasks note "call mom" --color '#bbf7d0' --emoji 📞
  newtab tasks list --type todo
  newtab tasks toggle <id>`,
	}

	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksAddCmd(models.KindNote))
	cmd.AddCommand(newTasksAddCmd(models.KindTodo))
	cmd.AddCommand(newTasksToggleCmd())
	cmd.AddCommand(newTasksEditCmd())
	cmd.AddCommand(newTasksDeleteCmd())
	cmd.AddCommand(newTasksMigrateCmd())

	return cmd
}

func printTasks(cmd *cobra.Command, list []models.Task) error {
	if wantJSON(cmd) {
		return printJSON(cmd, list)
	}
	if len(list) == 0 {
		info(cmd, "No tasks found")
		return nil
	}

	w := newTable(cmd)
	fmt.Fprintf(w, " \tTEXT\tTYPE\tCREATED\tID\n")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			taskMark(t), truncate(t.Text, 40), t.Kind, formatTime(t.CreatedAt.Time), t.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	info(cmd, "\nTotal: %d task(s)", len(list))
	return nil
}

func taskMark(t models.Task) string {
	switch {
	case t.Kind == models.KindNote:
		return t.Emoji
	case t.Done():
		return "[x]"
	default:
		return "[ ]"
	}
}

func newTasksListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := models.TaskKind(kind)
			if k != "" && k != models.KindNote && k != models.KindTodo {
				return fmt.Errorf("--type must be note or todo")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				list, err := a.Tasks.List(ctx, k)
				if err != nil {
					return err
				}
				return printTasks(cmd, list)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "Only list notes or todos")
	return cmd
}

func newTasksAddCmd(kind models.TaskKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind) + " <text>",
		Short: "Add a " + string(kind),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					task *models.Task
					err  error
				)
				if kind == models.KindNote {
					task, err = a.Tasks.AddNote(ctx, text, taskColor, taskEmoji)
				} else {
					task, err = a.Tasks.AddTodo(ctx, text, taskColor, taskEmoji)
				}
				if err != nil {
					return err
				}
				info(cmd, "Added %s", kind)
				if wantJSON(cmd) {
					return printJSON(cmd, task)
				}
				fmt.Fprintln(cmd.OutOrStdout(), task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&taskColor, "color", "", "Hex card color (default "+models.DefaultTaskColor+")")
	cmd.Flags().StringVar(&taskEmoji, "emoji", "", "Emoji shown on the card")
	return cmd
}

func newTasksToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between open and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tasks.Toggle(ctx, args[0])
				if err != nil {
					return err
				}
				state := "open"
				if task.Done() {
					state = "done"
				}
				info(cmd, "%s is now %s", truncate(task.Text, 40), state)
				if wantJSON(cmd) {
					return printJSON(cmd, task)
				}
				return nil
			})
		},
	}
}

func newTasksEditCmd() *cobra.Command {
	var text, color, emoji string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the text, color or emoji of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd tasks.Update
			if cmd.Flags().Changed("text") {
				upd.Text = &text
			}
			if cmd.Flags().Changed("color") {
				upd.Color = &color
			}
			if cmd.Flags().Changed("emoji") {
				upd.Emoji = &emoji
			}
			if upd.Text == nil && upd.Color == nil && upd.Emoji == nil {
				return fmt.Errorf("nothing to update: pass --text, --color or --emoji")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				task, err := a.Tasks.Update(ctx, args[0], upd)
				if err != nil {
					return err
				}
				info(cmd, "Updated %s", task.ID)
				if wantJSON(cmd) {
					return printJSON(cmd, task)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "New text")
	cmd.Flags().StringVar(&color, "color", "", "New hex color")
	cmd.Flags().StringVar(&emoji, "emoji", "", "New emoji")
	return cmd
}

func newTasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Tasks.Delete(ctx, args[0]); err != nil {
					return err
				}
				info(cmd, "Deleted %s", args[0])
				return nil
			})
		},
	}
}

func newTasksMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Copy notes and todos from the old separate databases",
		Long: `Copy notes and todos from the old separate notes and todos databases
into the unified tasks board. Runs once; the app also runs it at start-up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Tasks.MigrateLegacy(ctx, a.Registry, a.Slots)
				if err != nil {
					return err
				}
				info(cmd, "Migrated %d task(s)", n)
				return nil
			})
		},
	}
}
