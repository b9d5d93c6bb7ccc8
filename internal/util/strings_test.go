package util

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"maxLen of 3 returns ellipsis", "hello", 3, "..."},
		{"negative maxLen returns ellipsis", "hello", -5, "..."},
		{"empty string unchanged", "", 10, ""},
		{"maxLen of 4 shows one char plus ellipsis", "hello", 4, "h..."},
		{"unicode counted by rune", "Aangifte inkomstenbelasting €", 12, "Aangifte ..."},
		{"mixed ascii and unicode", "hello日本語world", 10, "hello日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxLen)
			if got != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string // empty means only the width is checked
	}{
		{"short plain string unchanged", "hello", 10, "hello"},
		{"plain string truncated", "hello world", 8, "hello..."},
		{"very small maxWidth returns ellipsis", "hello", 3, "..."},
		{"styled string preserved when it fits", red.Render("hi"), 10, red.Render("hi")},
		{"styled string truncated respects width", red.Render("hello world"), 8, ""},
		{"wide characters counted by cell width", "日本語テスト", 8, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateANSI(tt.input, tt.maxWidth)
			if w := lipgloss.Width(got); w > tt.maxWidth && tt.maxWidth > 3 {
				t.Errorf("TruncateANSI() width = %d, want <= %d", w, tt.maxWidth)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"empty", "", 20, "-"},
		{"whitespace only", " \n\t ", 20, "-"},
		{"collapses lines", "\n\nEerste regel\n  tweede\tregel", 40, "Eerste regel tweede regel"},
		{"truncates", "Box 1 inkomen uit werk en woning", 12, "Box 1 ink..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.text, tt.width); got != tt.want {
				t.Errorf("Preview(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "-"},
		{-time.Second, "-"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{61 * time.Second, "1m01s"},
		{10*time.Minute + 30*time.Second, "10m30s"},
	}

	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
