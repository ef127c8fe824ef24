package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
)

// renderView renders the complete dashboard view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	// Handle small terminal sizes gracefully
	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()

	// Two panels plus header and footer
	availableHeight := m.Height - lipgloss.Height(header) - 2
	queueHeight := availableHeight * 2 / 3
	cacheHeight := availableHeight - queueHeight

	queue := m.renderQueuePanel(queueHeight)
	cache := m.renderCachePanel(cacheHeight)

	panels := lipgloss.JoinVertical(lipgloss.Left, queue, cache)
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, panels, footer)
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder

	s.WriteString("landlord monitor (resize for full view)\n\n")
	if m.Online {
		s.WriteString("online\n")
	} else {
		s.WriteString("offline\n")
	}
	s.WriteString(fmt.Sprintf("Queued: %d\n", len(m.Queue)))

	s.WriteString("\nq:quit s:sync d:deliver ?:help")

	return s.String()
}

// renderHeader renders the connectivity strip
func (m Model) renderHeader() string {
	badge := offlineBadge.Render(" OFFLINE ")
	if m.Online {
		badge = onlineBadge.Render(" ONLINE ")
	}

	lastSync := "never synced"
	if !m.LastSyncAt.IsZero() {
		lastSync = "last sync " + m.LastSyncAt.Format("15:04:05")
	}

	status := ""
	switch {
	case m.Busy:
		status = m.Spinner.View() + " " + m.BusyMsg
	case m.Err != nil:
		status = errorStyle.Render(truncateString(m.Err.Error(), m.Width-30))
	case m.StatusMessage != "":
		status = subtleStyle.Render(m.StatusMessage)
	}

	left := fmt.Sprintf(" %s  %s", badge, timestampStyle.Render(lastSync))
	padding := m.Width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if padding < 1 {
		padding = 1
	}

	return left + strings.Repeat(" ", padding) + status
}

// renderQueuePanel renders the pending changes panel (Panel 1)
func (m Model) renderQueuePanel(height int) string {
	var content strings.Builder

	if len(m.Queue) == 0 {
		content.WriteString(subtleStyle.Render("No pending changes"))
	} else {
		offset := m.ScrollOffset[PanelQueue]
		if offset > len(m.Queue)-1 {
			offset = len(m.Queue) - 1
		}
		visible := m.visibleItems(len(m.Queue), offset, height-3)

		for i := offset; i < offset+visible && i < len(m.Queue); i++ {
			content.WriteString(m.formatQueueEntry(m.Queue[i]))
			content.WriteString("\n")
		}
		if len(m.Queue) > visible {
			content.WriteString(subtleStyle.Render(fmt.Sprintf("─ %d of %d ─", offset+visible, len(m.Queue))))
		}
	}

	title := fmt.Sprintf("PENDING CHANGES (%d)", len(m.Queue))
	return m.wrapPanel(title, content.String(), height, PanelQueue)
}

// renderCachePanel renders the cache freshness panel (Panel 2)
func (m Model) renderCachePanel(height int) string {
	var content strings.Builder

	for _, row := range m.Cache {
		synced := "never"
		if !row.LastSyncedAt.IsZero() {
			synced = row.LastSyncedAt.Format("15:04:05")
		}
		content.WriteString(fmt.Sprintf("%-14s %s  %s\n",
			titleStyle.Render(row.EntityType),
			fmt.Sprintf("%4d records", row.Count),
			subtleStyle.Render("synced "+synced)))
	}

	return m.wrapPanel("LOCAL CACHE", content.String(), height, PanelCache)
}

// formatQueueEntry formats a single queue entry line
func (m Model) formatQueueEntry(entry outbox.Entry) string {
	line := fmt.Sprintf("%s %s %s %s %s",
		timestampStyle.Render(entry.Timestamp.Format("15:04")),
		formatOp(entry.Operation),
		subtleStyle.Render(entry.TableName),
		titleStyle.Render(truncateString(entry.RecordID, 8)),
		formatQueueStatus(entry.Status))
	if entry.RetryCount > 0 {
		line += subtleStyle.Render(fmt.Sprintf(" (retries: %d)", entry.RetryCount))
	}
	if entry.ErrorMessage != "" {
		line += " " + errorStyle.Render(truncateString(entry.ErrorMessage, m.Width-50))
	}
	return line
}

// renderFooter renders the footer with key bindings and refresh time
func (m Model) renderFooter() string {
	keys := helpStyle.Render("q:quit  tab:switch  j/k:scroll  s:sync  d:deliver  r:refresh  ?:help")
	refresh := timestampStyle.Render(fmt.Sprintf("Last: %s", m.LastRefresh.Format("15:04:05")))

	padding := m.Width - lipgloss.Width(keys) - lipgloss.Width(refresh) - 2
	if padding < 0 {
		padding = 0
	}

	return fmt.Sprintf(" %s%s%s", keys, strings.Repeat(" ", padding), refresh)
}

// renderHelp renders the help overlay
func (m Model) renderHelp() string {
	help := `
LANDLORD MONITOR - Key Bindings

NAVIGATION:
  Tab               Switch between panels
  1 / 2             Jump to panel
  j / k             Scroll viewport

ACTIONS:
  s                 Refresh cache from server and deliver queue
  d                 Deliver queued changes only
  r                 Refresh display
  q / Ctrl+C        Quit

Press ? to close help
`
	return helpStyle.Render(help)
}

// wrapPanel wraps content in a panel with title and border
func (m Model) wrapPanel(title, content string, height int, panel Panel) string {
	style := panelStyle
	if m.ActivePanel == panel {
		style = activePanelStyle
	}

	titleStr := panelTitleStyle.Render(title)

	contentWidth := m.Width - 4

	lines := strings.Split(content, "\n")
	contentHeight := height - 3
	if contentHeight < 1 {
		contentHeight = 1
	}

	for len(lines) < contentHeight {
		lines = append(lines, "")
	}
	if len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}

	for i, line := range lines {
		if lipgloss.Width(line) > contentWidth {
			lines[i] = truncateString(line, contentWidth)
		}
	}

	body := strings.Join(lines, "\n")
	inner := lipgloss.JoinVertical(lipgloss.Left, titleStr, body)

	return style.Width(m.Width - 2).Render(inner)
}

// visibleItems calculates how many items can be shown given scroll offset and height
func (m Model) visibleItems(total, offset, height int) int {
	if height < 1 {
		height = 1
	}
	remaining := total - offset
	if remaining > height {
		return height
	}
	return remaining
}

// truncateString truncates a string to maxLen with ellipsis
func truncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	if len(s) > maxLen-3 {
		return s[:maxLen-3] + "..."
	}
	return s
}
