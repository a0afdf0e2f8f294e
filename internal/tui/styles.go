package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	goodColor    = lipgloss.Color("#10B981") // Green
	warnColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	textColor    = lipgloss.Color("#F9FAFB") // Light text
	borderColor  = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Status colors by agent state
	statusIdle         = lipgloss.NewStyle().Foreground(goodColor)
	statusBusy         = lipgloss.NewStyle().Foreground(warnColor)
	statusError        = lipgloss.NewStyle().Foreground(errorColor)
	statusShuttingDown = lipgloss.NewStyle().Foreground(mutedColor)
)

// statusStyle maps an agent status string to its display style.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "idle":
		return statusIdle
	case "busy":
		return statusBusy
	case "error":
		return statusError
	case "shutting_down":
		return statusShuttingDown
	default:
		return labelStyle
	}
}
