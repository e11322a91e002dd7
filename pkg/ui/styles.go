package ui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor  = lipgloss.Color("#7C3AED")
	accentColor   = lipgloss.Color("#10B981")
	errorColor    = lipgloss.Color("#EF4444")
	textPrimary   = lipgloss.Color("#E5E7EB")
	textSecondary = lipgloss.Color("#9CA3AF")
	textMuted     = lipgloss.Color("#6B7280")
	bgLight       = lipgloss.Color("#374151")

	appStyle = lipgloss.NewStyle().Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(textSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(bgLight).
			Padding(0, 1)
)
