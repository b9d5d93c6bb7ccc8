// Package util holds small text helpers shared by the CLI views.
package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateString cuts s to maxLen runes, ending in "..." when cut.
// It ignores escape codes and cell width; use TruncateANSI for styled text.
func TruncateString(s string, maxLen int) string {
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// TruncateANSI cuts s to maxWidth terminal cells, keeping escape sequences
// intact and ending in "..." when cut.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// The tail counts toward maxWidth.
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// Preview flattens a stage result into one line of at most width cells:
// whitespace runs collapse to a single space and leading blank lines are
// skipped. An empty result renders as "-".
func Preview(text string, width int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if flat == "" {
		return "-"
	}
	return TruncateANSI(flat, width)
}

// FormatElapsed renders a stage timing for tables: "-" for zero,
// milliseconds below one second, otherwise seconds with one decimal, and
// minutes:seconds from one minute up.
func FormatElapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
