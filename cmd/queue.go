package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	Short:   "Inspect and manage the offline sync queue",
	GroupID: "sync",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued changes in delivery order",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		entries, err := app.Outbox.List()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(entries)
		}

		if len(entries) == 0 {
			output.Info("Queue is empty")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-6s %-12s %-8s %s",
				e.Timestamp.Format("2006-01-02 15:04"),
				e.Operation, e.TableName, output.ShortID(e.RecordID), e.Status)
			if e.RetryCount > 0 {
				line += fmt.Sprintf("  retries: %d", e.RetryCount)
			}
			fmt.Println(line)
			if e.ErrorMessage != "" {
				fmt.Printf("    last error: %s\n", e.ErrorMessage)
			}
		}
		return nil
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Try delivering queued changes now",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		if !app.Mon.IsOnline() {
			output.Error("offline: cannot deliver queue")
			return fmt.Errorf("offline")
		}

		result, err := app.Engine.ProcessQueue(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if result.Succeeded == 0 && result.Failed == 0 {
			output.Info("Queue is empty")
			return nil
		}
		if result.Succeeded > 0 {
			output.Success("Delivered %d change(s)", result.Succeeded)
		}
		if result.Failed > 0 {
			output.Warning("%d change(s) failed, kept in queue", result.Failed)
		}
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every queued change",
	Long:  `Drops all undelivered changes. The discarded writes are lost; there is no undo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		n, err := app.Outbox.Count()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if n == 0 {
			output.Info("Queue is empty")
			return nil
		}

		if force, _ := cmd.Flags().GetBool("force"); !force {
			fmt.Printf("Drop %d undelivered change(s)? [y/N] ", n)
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(line)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := app.Outbox.Clear(); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("Dropped %d change(s)", n)
		return nil
	},
}

var queueShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one queued change including its payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		entries, err := app.Outbox.List()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		for _, e := range entries {
			if e.ID == args[0] || strings.HasPrefix(e.ID, args[0]) {
				return output.JSON(e)
			}
		}
		output.Error("queue entry %s not found", args[0])
		return fmt.Errorf("not found")
	},
}

func init() {
	queueListCmd.Flags().Bool("json", false, "Output as JSON")
	queueClearCmd.Flags().Bool("force", false, "Skip confirmation")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueRetryCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueCmd.AddCommand(queueShowCmd)
	rootCmd.AddCommand(queueCmd)
}
