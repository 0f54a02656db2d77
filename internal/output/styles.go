// Package output renders CLI output: search results, index status, and
// build summaries, with colors when stdout is a terminal.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette (256-color codes).
const (
	colorAccent = "39"  // blue for titles and scores
	colorGreen  = "40"  // success
	colorYellow = "220" // warnings, degraded modes
	colorRed    = "196" // errors
	colorGray   = "245" // secondary text
	colorDim    = "238" // separators
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Title   lipgloss.Style
	Path    lipgloss.Style
	Score   lipgloss.Style
	Source  lipgloss.Style
	Snippet lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

func colorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent)),
		Source:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Snippet: lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
	}
}

func plainStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Path:    lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Source:  lipgloss.NewStyle(),
		Snippet: lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
