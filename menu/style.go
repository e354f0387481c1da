package menu

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	Green     = lipgloss.Color("#00C832")
	Cyan      = lipgloss.Color("#00D4AA")
	Gold      = lipgloss.Color("#FFD700")
	Red       = lipgloss.Color("#FF5555")
	LightGray = lipgloss.Color("#aaaaaa")
)

type styles struct {
	title  lipgloss.Style
	key    lipgloss.Style
	id     lipgloss.Style
	prompt lipgloss.Style
	info   lipgloss.Style
	err    lipgloss.Style
	dim    lipgloss.Style
}

// newStyles creates styles for w. Colors are only used if w is a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Foreground(Green).Bold(true),
		key:    r.NewStyle().Foreground(Gold).Bold(true),
		id:     r.NewStyle().Foreground(Cyan).Bold(true),
		prompt: r.NewStyle().Foreground(Green),
		info:   r.NewStyle().Foreground(Green).Italic(true),
		err:    r.NewStyle().Foreground(Red).Bold(true),
		dim:    r.NewStyle().Foreground(LightGray),
	}
}
