// Package monitor is the landlord sync dashboard TUI. It shows connectivity,
// queued changes and cache freshness, and lets the user trigger a refresh or
// drain by hand.
package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/erebuskaimoros/Landlord-sub000/internal/engine"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// Panel represents which panel is active
type Panel int

const (
	PanelQueue Panel = iota
	PanelCache
)

// CacheRow summarizes one entity type in the cache.
type CacheRow struct {
	EntityType   string
	Count        int
	LastSyncedAt time.Time
}

// Model is the main Bubble Tea model for the sync dashboard
type Model struct {
	Engine *engine.Engine
	OrgID  string

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Online     bool
	Queue      []outbox.Entry
	Cache      []CacheRow
	LastSyncAt time.Time

	// UI state
	ActivePanel  Panel
	ScrollOffset map[Panel]int
	ShowHelp     bool
	LastRefresh  time.Time
	Err          error

	// In-flight operation feedback
	Busy    bool
	BusyMsg string
	Spinner spinner.Model

	// Status message shown after a manual sync or drain
	StatusMessage string

	// Configuration
	RefreshInterval time.Duration
}

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 12

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Online     bool
	Queue      []outbox.Entry
	Cache      []CacheRow
	LastSyncAt time.Time
	Err        error
	Timestamp  time.Time
}

// SyncDoneMsg reports a finished manual refresh or drain.
type SyncDoneMsg struct {
	Summary string
	Err     error
}

// NewModel creates a new dashboard model
func NewModel(eng *engine.Engine, orgID string, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		Engine:          eng,
		OrgID:           orgID,
		RefreshInterval: interval,
		ScrollOffset:    make(map[Panel]int),
		ActivePanel:     PanelQueue,
		Spinner:         sp,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Online = msg.Online
		m.Queue = msg.Queue
		m.Cache = msg.Cache
		m.LastSyncAt = msg.LastSyncAt
		m.LastRefresh = msg.Timestamp
		m.Err = msg.Err
		return m, nil

	case SyncDoneMsg:
		m.Busy = false
		m.BusyMsg = ""
		m.StatusMessage = msg.Summary
		m.Err = msg.Err
		return m, m.fetchData()

	case spinner.TickMsg:
		if !m.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "shift+tab":
		m.ActivePanel = (m.ActivePanel + 1) % 2
		return m, nil

	case "1":
		m.ActivePanel = PanelQueue
		return m, nil

	case "2":
		m.ActivePanel = PanelCache
		return m, nil

	case "j", "down":
		m.ScrollOffset[m.ActivePanel]++
		return m, nil

	case "k", "up":
		if m.ScrollOffset[m.ActivePanel] > 0 {
			m.ScrollOffset[m.ActivePanel]--
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "s":
		if m.Busy {
			return m, nil
		}
		m.Busy = true
		m.BusyMsg = "refreshing cache"
		m.StatusMessage = ""
		return m, tea.Batch(m.Spinner.Tick, m.runSync())

	case "d":
		if m.Busy {
			return m, nil
		}
		m.Busy = true
		m.BusyMsg = "delivering queued changes"
		m.StatusMessage = ""
		return m, tea.Batch(m.Spinner.Tick, m.runDrain())

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that fetches all data and sends a RefreshDataMsg
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return FetchData(m.Engine, m.OrgID)
	}
}

// runSync triggers a full cache refresh plus queue drain.
func (m Model) runSync() tea.Cmd {
	eng, orgID := m.Engine, m.OrgID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		report, err := eng.SyncData(ctx, orgID)
		if err != nil {
			return SyncDoneMsg{Err: err}
		}
		drained, derr := eng.ProcessQueue(ctx)
		msg := SyncDoneMsg{Summary: syncSummary(report, drained), Err: derr}
		return msg
	}
}

// runDrain replays the queue only.
func (m Model) runDrain() tea.Cmd {
	eng := m.Engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		result, err := eng.ProcessQueue(ctx)
		if err != nil {
			return SyncDoneMsg{Err: err}
		}
		return SyncDoneMsg{Summary: drainSummary(result)}
	}
}

// schemas returns the entity types shown in the cache panel.
func schemas() []*store.Schema {
	return store.Schemas()
}
