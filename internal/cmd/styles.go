package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

const defaultWidth = 100

// styles are the colors used by status output. Output that is not a
// terminal gets unstyled text.
type styles struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	done    lipgloss.Style
	running lipgloss.Style
	blocked lipgloss.Style
	ready   lipgloss.Style
	current lipgloss.Style
}

func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("245")),
		done:    r.NewStyle().Foreground(lipgloss.Color("42")),
		running: r.NewStyle().Foreground(lipgloss.Color("214")),
		blocked: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ready:   r.NewStyle().Foreground(lipgloss.Color("39")),
		current: r.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// outputWidth returns the terminal width of w, or defaultWidth.
func outputWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}
