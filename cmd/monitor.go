package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/appconfig"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/tui/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live TUI dashboard for sync state",
	Long: `Launch a live-updating dashboard showing:
- Connectivity and last successful sync
- Pending changes waiting for delivery
- Local cache contents and freshness

Key bindings:
  Tab            Switch panels
  1/2            Jump to panel
  j/k            Scroll viewport
  s              Refresh cache and deliver queue
  d              Deliver queued changes only
  r              Refresh display
  ?              Toggle help
  q              Quit`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		// Keep connectivity fresh while the dashboard is open
		go app.Probe.Run()

		// Deliver automatically whenever the connection comes back
		unbind := app.Engine.Bind(cmd.Context())
		defer unbind()

		// And on a timer while the dashboard is open
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go app.Engine.RunPeriodic(ctx, appconfig.GetSyncInterval())

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 500*time.Millisecond {
			interval = 2 * time.Second
		}

		model := monitor.NewModel(app.Engine, app.OrgID, interval)

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running monitor: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("interval", 2*time.Second, "Refresh interval (default 2s)")
}
