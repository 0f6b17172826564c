// ABOUTME: Tests for shared utility functions used by CLI commands
// ABOUTME: Verifies truncate, formatTime, and output format resolution
package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"very short maxLen", "hello", 2, "he"},
		{"multibyte runes", "سلام دنیا", 6, "سلا..."},
		{"empty string", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "-"},
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-2 * 24 * time.Hour), "2d ago"},
		{"old", time.Date(2020, 1, 2, 0, 0, 0, 0, time.Local), "2020-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTime(tt.t); got != tt.want {
				t.Errorf("formatTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWantJSON(t *testing.T) {
	defer func() { outputFormat = "auto" }()

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	tests := []struct {
		format string
		want   bool
	}{
		{"json", true},
		{"table", false},
		// a buffer is not a terminal
		{"auto", true},
	}
	for _, tt := range tests {
		outputFormat = tt.format
		if got := wantJSON(cmd); got != tt.want {
			t.Errorf("wantJSON() with --format %s = %v, want %v", tt.format, got, tt.want)
		}
	}
}
