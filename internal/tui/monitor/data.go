package monitor

import (
	"fmt"
	"time"

	"github.com/erebuskaimoros/Landlord-sub000/internal/engine"
)

// FetchData retrieves all data needed for the dashboard display
func FetchData(eng *engine.Engine, orgID string) RefreshDataMsg {
	msg := RefreshDataMsg{
		Timestamp: time.Now(),
		Online:    eng.Monitor().IsOnline(),
	}

	queue, err := eng.Outbox().List()
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Queue = queue

	st := eng.Store()
	for _, schema := range schemas() {
		row := CacheRow{EntityType: schema.Name}
		if n, err := st.Count(schema, orgID); err == nil {
			row.Count = n
		}
		if t, err := st.LastSyncedAt(schema); err == nil {
			row.LastSyncedAt = t
		}
		msg.Cache = append(msg.Cache, row)
	}

	msg.LastSyncAt = eng.LastSyncAt()
	return msg
}

// syncSummary renders the post-sync status line.
func syncSummary(report *engine.SyncReport, drained *engine.DrainResult) string {
	if report == nil {
		return "refresh already in progress"
	}
	total := 0
	for _, n := range report.Refreshed {
		total += n
	}
	s := fmt.Sprintf("refreshed %d records", total)
	if len(report.Errors) > 0 {
		s += fmt.Sprintf(", %d tables failed", len(report.Errors))
	}
	if drained != nil && (drained.Succeeded > 0 || drained.Failed > 0) {
		s += ", " + drainSummary(drained)
	}
	return s
}

// drainSummary renders the post-drain status line.
func drainSummary(result *engine.DrainResult) string {
	if result == nil {
		return ""
	}
	if result.Succeeded == 0 && result.Failed == 0 {
		return "queue empty"
	}
	s := fmt.Sprintf("delivered %d", result.Succeeded)
	if result.Failed > 0 {
		s += fmt.Sprintf(", %d failed", result.Failed)
	}
	return s
}
