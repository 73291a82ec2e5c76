package lockscreen

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 3)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	warningStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
)
