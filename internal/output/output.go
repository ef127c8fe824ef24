// Package output provides styled terminal output helpers (success, error,
// warning, record formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
)

var (
	// Styles
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	queuedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	priorityStyle = map[models.Priority]lipgloss.Style{
		models.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		models.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.PriorityUrgent: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	statusStyles = map[models.WorkOrderStatus]lipgloss.Style{
		models.WorkOrderOpen:       lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.WorkOrderInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.WorkOrderCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.WorkOrderCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
	unitStatusStyles = map[models.UnitStatus]lipgloss.Style{
		models.UnitVacant:      lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.UnitOccupied:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.UnitMaintenance: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Queued prints the pending-delivery notice after an offline write.
func Queued(format string, args ...interface{}) {
	fmt.Println(queuedStyle.Render("Queued: " + fmt.Sprintf(format, args...)))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeRejected      = "rejected"
	ErrCodeOffline       = "offline"
	ErrCodeDatabaseError = "database_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// FormatStatus formats a work order status with color
func FormatStatus(s models.WorkOrderStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatUnitStatus formats a unit occupancy status with color
func FormatUnitStatus(s models.UnitStatus) string {
	style, ok := unitStatusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatPriority formats a priority
func FormatPriority(p models.Priority) string {
	style, ok := priorityStyle[p]
	if !ok {
		return string(p)
	}
	return style.Render(fmt.Sprintf("[%s]", p))
}

// StatusBadge returns a status indicator with symbol
// e.g., "○ open", "▶ in_progress", "✓ completed", "✗ cancelled"
func StatusBadge(status models.WorkOrderStatus) string {
	symbols := map[models.WorkOrderStatus]string{
		models.WorkOrderOpen:       "○",
		models.WorkOrderInProgress: "▶",
		models.WorkOrderCompleted:  "✓",
		models.WorkOrderCancelled:  "✗",
	}
	symbol, ok := symbols[status]
	if !ok {
		symbol = "?"
	}
	style, hasStyle := statusStyles[status]
	if hasStyle {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatWorkOrderShort formats a work order on one line
func FormatWorkOrderShort(wo *models.WorkOrder) string {
	var parts []string
	parts = append(parts, titleStyle.Render(ShortID(wo.ID)))
	parts = append(parts, FormatPriority(wo.Priority))
	parts = append(parts, wo.Title)
	if wo.DueDate != nil {
		parts = append(parts, subtleStyle.Render("due "+wo.DueDate.Format("2006-01-02")))
	}
	parts = append(parts, FormatStatus(wo.Status))
	return strings.Join(parts, "  ")
}

// FormatUnitShort formats a unit on one line
func FormatUnitShort(u *models.Unit) string {
	var parts []string
	parts = append(parts, titleStyle.Render(ShortID(u.ID)))
	parts = append(parts, u.Name)
	if u.Address != "" {
		parts = append(parts, subtleStyle.Render(u.Address))
	}
	parts = append(parts, FormatUnitStatus(u.Status))
	return strings.Join(parts, "  ")
}

// FormatContractorShort formats a contractor on one line
func FormatContractorShort(c *models.Contractor) string {
	var parts []string
	parts = append(parts, titleStyle.Render(ShortID(c.ID)))
	parts = append(parts, c.Name)
	if c.Specialty != "" {
		parts = append(parts, subtleStyle.Render(c.Specialty))
	}
	if c.Rating > 0 {
		parts = append(parts, subtleStyle.Render(fmt.Sprintf("%.1f★", c.Rating)))
	}
	return strings.Join(parts, "  ")
}

// WorkOrderMarkdown renders a work order as a markdown document for the
// show command.
func WorkOrderMarkdown(wo *models.WorkOrder) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", wo.Title))
	sb.WriteString(fmt.Sprintf("**Status:** %s  \n**Priority:** %s\n", wo.Status, wo.Priority))
	if wo.DueDate != nil {
		sb.WriteString(fmt.Sprintf("**Due:** %s\n", wo.DueDate.Format("2006-01-02")))
	}
	if wo.UnitID != "" {
		sb.WriteString(fmt.Sprintf("**Unit:** `%s`\n", wo.UnitID))
	}
	if wo.ContractorID != "" {
		sb.WriteString(fmt.Sprintf("**Contractor:** `%s`\n", wo.ContractorID))
	}
	if wo.Latitude != nil && wo.Longitude != nil {
		sb.WriteString(fmt.Sprintf("**Location:** %.5f, %.5f\n", *wo.Latitude, *wo.Longitude))
	}
	if wo.Description != "" {
		sb.WriteString("\n## Description\n\n")
		sb.WriteString(wo.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatDistance renders a distance in meters, switching to km past 1000.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// ShortID shortens a record id to 8 characters for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CacheNote marks output that was served from the local cache.
func CacheNote(lastSynced time.Time) string {
	if lastSynced.IsZero() {
		return subtleStyle.Render("(cached, never synced)")
	}
	return subtleStyle.Render(fmt.Sprintf("(cached, synced %s)", FormatTimeAgo(lastSynced)))
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nPENDING CHANGES:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
