// ABOUTME: MCP tool definitions and registration for the dashboard server
// ABOUTME: Exposes settings, tasks, tiles, backgrounds, calendar and export as tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/newtab/internal/app"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

func enumProp(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

func objectSchema(props map[string]interface{}, required ...string) mcp.ToolInputSchema {
	if props == nil {
		props = map[string]interface{}{}
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// RegisterTools registers every dashboard tool with the server.
func RegisterTools(server *mcpserver.MCPServer, a *app.App) *Handlers {
	handlers := NewHandlers(a)

	// Settings
	server.AddTool(mcp.Tool{
		Name:        "get_settings",
		Description: "Get the dashboard settings: calendar system, tile grid size, weekend days and colors, first day of week, text and background colors, and UI language.",
		InputSchema: objectSchema(nil),
	}, handlers.GetSettings)

	server.AddTool(mcp.Tool{
		Name:        "update_settings",
		Description: "Update one or more dashboard settings. Omitted fields stay unchanged. Changing the calendar system may switch the UI language.",
		InputSchema: objectSchema(map[string]interface{}{
			"calendar_type":     enumProp("Calendar system", "gregorian", "persian"),
			"tile_size":         numberProp("Number of bookmark tiles (4-48)"),
			"weekend_days":      stringProp("Comma separated weekdays, at most 3 (e.g. \"fri,sat\")"),
			"weekend_color":     stringProp("Hex color for weekend days"),
			"first_day_of_week": stringProp("Weekday the calendar starts on"),
			"text_color":        stringProp("Hex text color"),
			"background_color":  stringProp("Hex fallback background color"),
			"language":          enumProp("UI language", "en", "fa"),
		}),
	}, handlers.UpdateSettings)

	// Tasks
	server.AddTool(mcp.Tool{
		Name:        "list_tasks",
		Description: "List notes and todos, newest first.",
		InputSchema: objectSchema(map[string]interface{}{
			"type": enumProp("Only list this kind", "note", "todo"),
		}),
	}, handlers.ListTasks)

	server.AddTool(mcp.Tool{
		Name:        "add_task",
		Description: "Add a note or a todo to the dashboard.",
		InputSchema: objectSchema(map[string]interface{}{
			"type":  enumProp("Kind of task (default: todo)", "note", "todo"),
			"text":  stringProp("Task text"),
			"color": stringProp("Optional hex card color"),
			"emoji": stringProp("Optional emoji"),
		}, "text"),
	}, handlers.AddTask)

	server.AddTool(mcp.Tool{
		Name:        "update_task",
		Description: "Edit the text, color or emoji of a task.",
		InputSchema: objectSchema(map[string]interface{}{
			"id":    stringProp("Task ID"),
			"text":  stringProp("New text"),
			"color": stringProp("New hex color"),
			"emoji": stringProp("New emoji"),
		}, "id"),
	}, handlers.UpdateTask)

	server.AddTool(mcp.Tool{
		Name:        "toggle_task",
		Description: "Flip the completed state of a todo.",
		InputSchema: objectSchema(map[string]interface{}{
			"id": stringProp("Todo ID"),
		}, "id"),
	}, handlers.ToggleTask)

	server.AddTool(mcp.Tool{
		Name:        "delete_task",
		Description: "Delete a note or todo.",
		InputSchema: objectSchema(map[string]interface{}{
			"id": stringProp("Task ID"),
		}, "id"),
	}, handlers.DeleteTask)

	// Bookmark tiles
	server.AddTool(mcp.Tool{
		Name:        "list_tiles",
		Description: "List the bookmark tiles in grid order.",
		InputSchema: objectSchema(nil),
	}, handlers.ListTiles)

	server.AddTool(mcp.Tool{
		Name:        "bookmark_picker",
		Description: "List the browser bookmarks that can be pinned as tiles.",
		InputSchema: objectSchema(nil),
	}, handlers.BookmarkPicker)

	server.AddTool(mcp.Tool{
		Name:        "add_tile",
		Description: "Pin a browser bookmark or folder to the first free tile.",
		InputSchema: objectSchema(map[string]interface{}{
			"bookmark_id": stringProp("Bookmark ID from bookmark_picker"),
		}, "bookmark_id"),
	}, handlers.AddTile)

	server.AddTool(mcp.Tool{
		Name:        "move_tile",
		Description: "Move a tile to a new grid position.",
		InputSchema: objectSchema(map[string]interface{}{
			"id":       stringProp("Tile ID"),
			"position": numberProp("Zero based target position"),
		}, "id", "position"),
	}, handlers.MoveTile)

	server.AddTool(mcp.Tool{
		Name:        "remove_tile",
		Description: "Unpin a tile.",
		InputSchema: objectSchema(map[string]interface{}{
			"id": stringProp("Tile ID"),
		}, "id"),
	}, handlers.RemoveTile)

	// Backgrounds
	server.AddTool(mcp.Tool{
		Name:        "list_backgrounds",
		Description: "List saved background images, newest first.",
		InputSchema: objectSchema(nil),
	}, handlers.ListBackgrounds)

	server.AddTool(mcp.Tool{
		Name:        "add_background",
		Description: "Save an image URL to the background library.",
		InputSchema: objectSchema(map[string]interface{}{
			"url": stringProp("Absolute http(s) image URL"),
		}, "url"),
	}, handlers.AddBackground)

	server.AddTool(mcp.Tool{
		Name:        "select_background",
		Description: "Select the dashboard background: a hex color, a CSS linear-gradient, a stored background ID or an image URL. An empty value clears it.",
		InputSchema: objectSchema(map[string]interface{}{
			"value": stringProp("Background reference"),
		}, "value"),
	}, handlers.SelectBackground)

	server.AddTool(mcp.Tool{
		Name:        "current_background",
		Description: "Resolve the selected background into what the dashboard paints.",
		InputSchema: objectSchema(nil),
	}, handlers.CurrentBackground)

	// Calendar and export
	server.AddTool(mcp.Tool{
		Name:        "calendar_month",
		Description: "Month grid in the configured calendar system with weekend flags.",
		InputSchema: objectSchema(map[string]interface{}{
			"date": stringProp("Gregorian day inside the month, YYYY-MM-DD (default: today)"),
		}),
	}, handlers.CalendarMonth)

	server.AddTool(mcp.Tool{
		Name:        "export_data",
		Description: "Export settings, backgrounds, tiles and tasks as one document.",
		InputSchema: objectSchema(map[string]interface{}{
			"format": enumProp("Document format (default: json)", "json", "yaml"),
		}),
	}, handlers.ExportData)

	return handlers
}
