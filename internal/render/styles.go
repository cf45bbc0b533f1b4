// Package render formats catalog, model and health data for the terminal.
package render

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark terminal theme
const (
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorPink   = "#db61a2"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorBright = "#f0f6fc"
)

// Styles holds the lipgloss styles used by the CLI.
type Styles struct {
	Title  lipgloss.Style
	Dim    lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style

	OK   lipgloss.Style
	Warn lipgloss.Style
	Fail lipgloss.Style

	// Speaker labels in chat output, keyed by persona.
	Speakers map[string]lipgloss.Style
}

// DefaultStyles creates the default style set.
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),

		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),

		Cell: lipgloss.NewStyle().
			Padding(0, 1),

		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBorder)),

		OK:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warn: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Fail: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),

		Speakers: map[string]lipgloss.Style{
			"diszi": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBlue)),
			"zily":  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPink)),
		},
	}
}

// Speaker returns the label style for a persona, bold bright text for keys
// without a dedicated color.
func (s *Styles) Speaker(key string) lipgloss.Style {
	if st, ok := s.Speakers[key]; ok {
		return st
	}
	return s.Title
}

// Status renders a reachability marker.
func (s *Styles) Status(ok bool) string {
	if ok {
		return s.OK.Render("✓ reachable")
	}
	return s.Fail.Render("✗ unreachable")
}
