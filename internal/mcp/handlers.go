// ABOUTME: MCP tool handler implementations for the dashboard server
// ABOUTME: Validation problems are returned as tool errors, results as JSON text
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/background"
	"github.com/harper/newtab/internal/bookmarks"
	"github.com/harper/newtab/internal/calendar"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/tasks"
	"github.com/harper/newtab/internal/transfer"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	app *app.App
	now func() time.Time
}

// NewHandlers returns handlers over the wired app.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a, now: time.Now}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

// optionalString returns a pointer to the argument when it was sent.
func optionalString(request mcp.CallToolRequest, name string) *string {
	raw, ok := arguments(request)[name]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return &s
}

type settingsView struct {
	settings.Settings
	Direction settings.Direction `json:"direction"`
}

func (h *Handlers) settingsResponse() (*mcp.CallToolResult, error) {
	s := h.app.Settings.Snapshot()
	return jsonResult(settingsView{Settings: s, Direction: s.Language.Direction()})
}

// GetSettings handles the get_settings tool
func (h *Handlers) GetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.settingsResponse()
}

// UpdateSettings handles the update_settings tool
func (h *Handlers) UpdateSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m := h.app.Settings
	var edits []func(*settings.Settings)

	if v := optionalString(request, "calendar_type"); v != nil {
		cal := settings.CalendarSystem(*v)
		couple := m.CouplesLanguage()
		edits = append(edits, func(s *settings.Settings) {
			s.CalendarType = cal
			if lang, ok := settings.LanguageFor(cal); ok && couple {
				s.Language = lang
			}
		})
	}
	if _, ok := arguments(request)["tile_size"]; ok {
		size, err := request.RequireInt("tile_size")
		if err != nil {
			return mcp.NewToolResultError("tile_size must be a number"), nil
		}
		edits = append(edits, func(s *settings.Settings) { s.TileSize = size })
	}
	if v := optionalString(request, "weekend_days"); v != nil {
		days := make([]time.Weekday, 0, settings.MaxWeekendDays)
		for _, part := range strings.Split(*v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			d, err := settings.ParseWeekday(part)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			days = append(days, d)
		}
		edits = append(edits, func(s *settings.Settings) { s.WeekendDays = days })
	}
	if v := optionalString(request, "first_day_of_week"); v != nil {
		d, err := settings.ParseWeekday(*v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		edits = append(edits, func(s *settings.Settings) { s.FirstDayOfWeek = d })
	}
	for name, field := range map[string]func(*settings.Settings) *string{
		"weekend_color":    func(s *settings.Settings) *string { return &s.WeekendColor },
		"text_color":       func(s *settings.Settings) *string { return &s.TextColor },
		"background_color": func(s *settings.Settings) *string { return &s.BackgroundColor },
	} {
		if v := optionalString(request, name); v != nil {
			value, field := *v, field
			edits = append(edits, func(s *settings.Settings) { *field(s) = value })
		}
	}
	// Explicit language wins over the calendar coupling, so it goes last.
	if v := optionalString(request, "language"); v != nil {
		lang := settings.Language(*v)
		edits = append(edits, func(s *settings.Settings) { s.Language = lang })
	}

	if len(edits) == 0 {
		return mcp.NewToolResultError("no settings given"), nil
	}
	err := m.Update(func(s *settings.Settings) error {
		for _, edit := range edits {
			edit(s)
		}
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update settings: %v", err)), nil
	}
	return h.settingsResponse()
}

// ListTasks handles the list_tasks tool
func (h *Handlers) ListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := models.TaskKind(request.GetString("type", ""))
	if kind != "" && kind != models.KindNote && kind != models.KindTodo {
		return mcp.NewToolResultError("type must be note or todo"), nil
	}
	list, err := h.app.Tasks.List(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"tasks": list})
}

// AddTask handles the add_task tool
func (h *Handlers) AddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	color := request.GetString("color", "")
	emoji := request.GetString("emoji", "")

	var task *models.Task
	switch models.TaskKind(request.GetString("type", string(models.KindTodo))) {
	case models.KindNote:
		task, err = h.app.Tasks.AddNote(ctx, text, color, emoji)
	case models.KindTodo:
		task, err = h.app.Tasks.AddTodo(ctx, text, color, emoji)
	default:
		return mcp.NewToolResultError("type must be note or todo"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add task: %v", err)), nil
	}
	return jsonResult(task)
}

// UpdateTask handles the update_task tool
func (h *Handlers) UpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}
	task, err := h.app.Tasks.Update(ctx, id, tasks.Update{
		Text:  optionalString(request, "text"),
		Color: optionalString(request, "color"),
		Emoji: optionalString(request, "emoji"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update task: %v", err)), nil
	}
	return jsonResult(task)
}

// ToggleTask handles the toggle_task tool
func (h *Handlers) ToggleTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}
	task, err := h.app.Tasks.Toggle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to toggle task: %v", err)), nil
	}
	return jsonResult(task)
}

// DeleteTask handles the delete_task tool
func (h *Handlers) DeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}
	if err := h.app.Tasks.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete task: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"success": true, "id": id})
}

// ListTiles handles the list_tiles tool
func (h *Handlers) ListTiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tiles, err := h.app.Tiles.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tiles: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"tiles":    tiles,
		"capacity": h.app.Tiles.Capacity(),
	})
}

// BookmarkPicker handles the bookmark_picker tool
func (h *Handlers) BookmarkPicker(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.app.Tiles.Picker(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read bookmarks: %v", err)), nil
	}
	if entries == nil {
		entries = []bookmarks.PickerEntry{}
	}
	return jsonResult(map[string]interface{}{"bookmarks": entries})
}

// AddTile handles the add_tile tool
func (h *Handlers) AddTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bookmarkID, err := request.RequireString("bookmark_id")
	if err != nil {
		return mcp.NewToolResultError("bookmark_id argument is required and must be a string"), nil
	}
	tile, err := h.app.Tiles.Add(ctx, bookmarkID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add tile: %v", err)), nil
	}
	return jsonResult(tile)
}

// MoveTile handles the move_tile tool
func (h *Handlers) MoveTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}
	pos, err := request.RequireInt("position")
	if err != nil {
		return mcp.NewToolResultError("position argument is required and must be a number"), nil
	}
	tiles, err := h.app.Tiles.Move(ctx, id, pos)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to move tile: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"tiles": tiles})
}

// RemoveTile handles the remove_tile tool
func (h *Handlers) RemoveTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a string"), nil
	}
	if err := h.app.Tiles.Remove(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to remove tile: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"success": true, "id": id})
}

// ListBackgrounds handles the list_backgrounds tool
func (h *Handlers) ListBackgrounds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.app.Backgrounds.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list backgrounds: %v", err)), nil
	}
	selected := ""
	if ref, err := h.app.Backgrounds.Selected(); err == nil && ref != nil {
		selected = ref.String()
	}
	return jsonResult(map[string]interface{}{
		"backgrounds": list,
		"selected":    selected,
	})
}

// AddBackground handles the add_background tool
func (h *Handlers) AddBackground(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url argument is required and must be a string"), nil
	}
	bg, err := h.app.Backgrounds.AddURL(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add background: %v", err)), nil
	}
	return jsonResult(bg)
}

// SelectBackground handles the select_background tool
func (h *Handlers) SelectBackground(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value argument is required and must be a string"), nil
	}
	if _, err := h.app.Backgrounds.Select(ctx, value); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to select background: %v", err)), nil
	}
	return h.CurrentBackground(ctx, request)
}

// CurrentBackground handles the current_background tool
func (h *Handlers) CurrentBackground(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fallback := background.Renderable{
		Kind:  background.RenderColor,
		Value: h.app.Settings.Snapshot().BackgroundColor,
	}
	return jsonResult(h.app.Backgrounds.Current(ctx, fallback))
}

// CalendarMonth handles the calendar_month tool
func (h *Handlers) CalendarMonth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := h.now()
	if raw := request.GetString("date", ""); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
		day = parsed
	}
	s := h.app.Settings.Snapshot()
	return jsonResult(calendar.MonthGrid(s.CalendarType, day, s.FirstDayOfWeek, s.WeekendDays, s.Language))
}

// ExportData handles the export_data tool
func (h *Handlers) ExportData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := transfer.ParseFormat(request.GetString("format", string(transfer.FormatJSON)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bundle, err := transfer.Export(ctx, h.app.Transfer())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	var buf bytes.Buffer
	if err := transfer.Write(&buf, bundle, format); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
