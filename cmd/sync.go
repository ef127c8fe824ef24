package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/appconfig"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Refresh the local cache and deliver queued changes",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		refreshOnly, _ := cmd.Flags().GetBool("refresh")
		drainOnly, _ := cmd.Flags().GetBool("deliver")

		if !appconfig.IsAuthenticated() {
			output.Error("not logged in (run: landlord auth login)")
			return fmt.Errorf("not authenticated")
		}

		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		if !app.Mon.IsOnline() {
			output.Error("offline: cannot reach %s", app.Client.BaseURL)
			return fmt.Errorf("offline")
		}

		// Deliver local changes before pulling so the refresh reflects them
		if !refreshOnly {
			result, err := app.Engine.ProcessQueue(cmd.Context())
			if err != nil {
				output.Error("deliver queue: %v", err)
				return err
			}
			if result.Succeeded > 0 {
				output.Success("Delivered %d queued change(s)", result.Succeeded)
			}
			if result.Failed > 0 {
				output.Warning("%d change(s) failed, kept in queue (see: landlord queue list)", result.Failed)
			}
		}

		if !drainOnly {
			report, err := app.Engine.SyncData(cmd.Context(), app.OrgID)
			if err != nil {
				output.Error("refresh cache: %v", err)
				return err
			}
			if report == nil {
				output.Warning("refresh already in progress")
				return nil
			}
			total := 0
			for _, n := range report.Refreshed {
				total += n
			}
			output.Success("Refreshed %d record(s) across %d table(s) in %s",
				total, len(report.Refreshed), report.Duration.Round(time.Millisecond))
			for table, err := range report.Errors {
				output.Warning("%s: %v", table, err)
			}
		}

		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show connectivity, queue and cache state",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		if app.Mon.IsOnline() {
			output.Success("Online (%s)", app.Client.BaseURL)
		} else {
			output.Warning("Offline (%s unreachable)", app.Client.BaseURL)
		}

		pending, err := app.Outbox.Count()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if pending == 0 {
			fmt.Println("Queue: empty")
		} else {
			fmt.Printf("Queue: %d pending change(s)\n", pending)
		}

		fmt.Print(output.SectionHeader("local cache"))
		for _, schema := range store.Schemas() {
			n, _ := app.Store.Count(schema, app.OrgID)
			lastSync, _ := app.Store.LastSyncedAt(schema)
			synced := "never synced"
			if !lastSync.IsZero() {
				synced = "synced " + output.FormatTimeAgo(lastSync)
			}
			fmt.Printf("  %-14s %4d record(s)  %s\n", schema.Name, n, synced)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("refresh", false, "Only refresh the cache, do not deliver the queue")
	syncCmd.Flags().Bool("deliver", false, "Only deliver the queue, do not refresh the cache")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
