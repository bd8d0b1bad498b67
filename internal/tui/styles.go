package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorGray   = lipgloss.Color("8")
	ColorWhite  = lipgloss.Color("7")
	ColorGreen  = lipgloss.Color("#44FF44")
	ColorAmber  = lipgloss.Color("#FFAA00")
	ColorRed    = lipgloss.Color("#FF4444")
	ColorBlue   = lipgloss.Color("39")
	ColorBorder = lipgloss.Color("240")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	labelStyle = lipgloss.NewStyle().Foreground(ColorGray)
	valueStyle = lipgloss.NewStyle().Foreground(ColorWhite)
	errorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// statusStyle colors an HTTP status the way the lifecycle reports it.
func statusStyle(status int, didError bool) lipgloss.Style {
	switch {
	case didError || status == 0 || status >= 500:
		return lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	case status >= 400:
		return lipgloss.NewStyle().Foreground(ColorAmber).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	}
}
