// Package tui is the bubbletea review UI: pick a recommendation, review
// its cards, see the result.
package tui

import "github.com/charmbracelet/lipgloss"

// defaultAccentColor is the default accent color (indigo).
const defaultAccentColor = "#7D56F4"

var (
	colorGray   = lipgloss.Color("#888888")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(defaultAccentColor)).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(defaultAccentColor)).
			Padding(1, 4).
			Align(lipgloss.Center)

	frontStyle = lipgloss.NewStyle().Bold(true)
	backStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	hintStyle  = lipgloss.NewStyle().Foreground(colorGray)

	goodStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(colorYellow)
	badStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(defaultAccentColor))
)

// scoreStyle colors a retention score against the threshold.
func scoreStyle(score, threshold float64) lipgloss.Style {
	switch {
	case score < threshold/2:
		return badStyle
	case score < threshold:
		return warnStyle
	default:
		return goodStyle
	}
}
