package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor)
	spinnerStyle   = lipgloss.NewStyle().Foreground(primaryColor)

	// Connectivity badges
	onlineBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(successColor)

	offlineBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(errorColor)

	// Queue status styles
	queueStatusStyles = map[outbox.Status]lipgloss.Style{
		outbox.StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		outbox.StatusSyncing: lipgloss.NewStyle().Foreground(warningColor),
		outbox.StatusFailed:  lipgloss.NewStyle().Foreground(errorColor),
	}

	// Operation badges
	opStyles = map[outbox.Operation]lipgloss.Style{
		outbox.OpInsert: lipgloss.NewStyle().Foreground(successColor),
		outbox.OpUpdate: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		outbox.OpDelete: lipgloss.NewStyle().Foreground(errorColor),
	}
)

// formatQueueStatus renders a queue entry status with color
func formatQueueStatus(s outbox.Status) string {
	style, ok := queueStatusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

// formatOp renders an operation badge
func formatOp(op outbox.Operation) string {
	style, ok := opStyles[op]
	if !ok {
		return string(op)
	}
	return style.Render(string(op))
}
