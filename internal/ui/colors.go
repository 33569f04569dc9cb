package ui

import "github.com/charmbracelet/lipgloss"

// The accent follows the Spotify brand green; status colors stay muted so
// they read on both light and dark terminals.
const (
	accentColor = lipgloss.Color("#1DB954")
	errorColor  = lipgloss.Color("#E25D5D")
	warnColor   = lipgloss.Color("#E5C07B")
	faintColor  = lipgloss.Color("#6C6C6C")
)

var styles = NewPalette()

// Palette is the shared stylesheet for command output and the device picker.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds the package stylesheet.
func NewPalette() *Palette {
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Palette{
		title: fg(accentColor).Bold(true).MarginBottom(1),
		ok:    fg(accentColor).Bold(true),
		err:   fg(errorColor).Bold(true),
		warn:  fg(warnColor),
		help:  fg(faintColor).Italic(true),
	}
}
