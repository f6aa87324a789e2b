package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Salesforce-blue color theme. Primary blue (#0176d3) mirrors the
// Lightning Design System's brand color for key elements.
var (
	ColorBlue  = lipgloss.Color("#0176d3") // Primary brand color
	ColorWhite = lipgloss.Color("#fafaf9") // text-text-primary
	ColorMuted = lipgloss.Color("#706e6b") // text-text-muted
	ColorGreen = lipgloss.Color("#2e844a") // status-ready
	ColorRed   = lipgloss.Color("#ba0517") // status-failed
	ColorGray  = lipgloss.Color("#969492") // text-text-secondary
)

// blueStyles returns charmbracelet/log styles with the Salesforce-blue theme.
func blueStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(ColorBlue).
		Bold(true)

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(lipgloss.Color("#fe9339")).
		Bold(true)

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(ColorRed).
		Bold(true)

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(ColorMuted)

	styles.Timestamp = lipgloss.NewStyle().
		Foreground(ColorMuted)

	styles.Key = lipgloss.NewStyle().
		Foreground(ColorBlue)

	styles.Value = lipgloss.NewStyle().
		Foreground(ColorGray)

	return styles
}
