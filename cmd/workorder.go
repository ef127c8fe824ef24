package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/dateparse"
	"github.com/erebuskaimoros/Landlord-sub000/internal/facade"
	"github.com/erebuskaimoros/Landlord-sub000/internal/input"
	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

var workorderCmd = &cobra.Command{
	Use:     "workorder",
	Aliases: []string{"wo"},
	Short:   "Manage maintenance work orders",
	GroupID: "entities",
}

var workorderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		var filter store.Filter
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			if !models.IsValidWorkOrderStatus(models.WorkOrderStatus(status)) {
				return fmt.Errorf("invalid status %q", status)
			}
			filter.Where = append(filter.Where, store.Eq("status", status))
		}
		if priority, _ := cmd.Flags().GetString("priority"); priority != "" {
			p := models.NormalizePriority(priority)
			if !models.IsValidPriority(p) {
				return fmt.Errorf("invalid priority %q", priority)
			}
			filter.Where = append(filter.Where, store.Eq("priority", string(p)))
		}
		if due, _ := cmd.Flags().GetString("due-before"); due != "" {
			iso, err := dateparse.ParseDate(due)
			if err != nil {
				return fmt.Errorf("parse due-before: %w", err)
			}
			t, _ := time.Parse("2006-01-02", iso)
			filter.Where = append(filter.Where, store.Before("due_date", t.UnixMilli()))
		}

		result, err := app.Facade.List(cmd.Context(), store.WorkOrders, filter)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(result.Records)
		}

		if len(result.Records) == 0 {
			output.Info("No work orders found")
			return nil
		}
		for _, rec := range result.Records {
			var wo models.WorkOrder
			if err := json.Unmarshal(rec.Payload, &wo); err != nil {
				continue
			}
			fmt.Println(output.FormatWorkOrderShort(&wo))
		}
		if result.FromCache {
			lastSync, _ := app.Store.LastSyncedAt(store.WorkOrders)
			fmt.Println(output.CacheNote(lastSync))
		}
		return nil
	},
}

var workorderShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show work order details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		rec, fromCache, err := app.Facade.Get(cmd.Context(), store.WorkOrders, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if rec == nil {
			output.Error("work order %s not found", args[0])
			return fmt.Errorf("not found")
		}

		var wo models.WorkOrder
		if err := json.Unmarshal(rec.Payload, &wo); err != nil {
			return fmt.Errorf("decode work order: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(wo)
		}

		rendered, err := output.RenderMarkdown(output.WorkOrderMarkdown(&wo))
		if err != nil {
			// Fall back to plain formatting if the renderer chokes
			fmt.Println(output.FormatWorkOrderShort(&wo))
			return nil
		}
		fmt.Println(rendered)
		if fromCache {
			lastSync, _ := app.Store.LastSyncedAt(store.WorkOrders)
			fmt.Println(output.CacheNote(lastSync))
		}
		return nil
	},
}

var workorderCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a work order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		wo := models.WorkOrder{
			OrganizationID: app.OrgID,
			Status:         models.WorkOrderOpen,
			Priority:       models.PriorityMedium,
		}
		if len(args) == 1 {
			wo.Title = args[0]
		}

		if wo.Title == "" {
			if err := runWorkOrderForm(&wo); err != nil {
				return err
			}
		}

		if priority, _ := cmd.Flags().GetString("priority"); priority != "" {
			wo.Priority = models.NormalizePriority(priority)
			if !models.IsValidPriority(wo.Priority) {
				return fmt.Errorf("invalid priority %q", priority)
			}
		}
		if desc, _ := cmd.Flags().GetString("description"); desc != "" {
			expanded, err := input.Expand(desc)
			if err != nil {
				return err
			}
			wo.Description = expanded
		}
		if unitID, _ := cmd.Flags().GetString("unit"); unitID != "" {
			wo.UnitID = unitID
		}
		if contractorID, _ := cmd.Flags().GetString("contractor"); contractorID != "" {
			wo.ContractorID = contractorID
		}
		if due, _ := cmd.Flags().GetString("due"); due != "" {
			iso, err := dateparse.ParseDate(due)
			if err != nil {
				return fmt.Errorf("parse due date: %w", err)
			}
			t, _ := time.Parse("2006-01-02", iso)
			wo.DueDate = &t
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			lng, _ := cmd.Flags().GetFloat64("lng")
			wo.Latitude = &lat
			wo.Longitude = &lng
		}

		if wo.Title == "" {
			return fmt.Errorf("title required")
		}
		now := time.Now()
		wo.CreatedAt = now
		wo.UpdatedAt = now

		data, err := json.Marshal(wo)
		if err != nil {
			return fmt.Errorf("encode work order: %w", err)
		}
		result, err := app.Facade.Mutate(cmd.Context(), store.WorkOrders, outbox.OpInsert, "", data)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "work order")
		return nil
	},
}

var workorderUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a work order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		wo, err := loadWorkOrder(cmd, app, args[0])
		if err != nil {
			return err
		}

		if status, _ := cmd.Flags().GetString("status"); status != "" {
			s := models.WorkOrderStatus(status)
			if !models.IsValidWorkOrderStatus(s) {
				return fmt.Errorf("invalid status %q", status)
			}
			wo.Status = s
		}
		if priority, _ := cmd.Flags().GetString("priority"); priority != "" {
			p := models.NormalizePriority(priority)
			if !models.IsValidPriority(p) {
				return fmt.Errorf("invalid priority %q", priority)
			}
			wo.Priority = p
		}
		if title, _ := cmd.Flags().GetString("title"); title != "" {
			wo.Title = title
		}
		if desc, _ := cmd.Flags().GetString("description"); cmd.Flags().Changed("description") {
			expanded, err := input.Expand(desc)
			if err != nil {
				return err
			}
			wo.Description = expanded
		}
		if contractorID, _ := cmd.Flags().GetString("contractor"); contractorID != "" {
			wo.ContractorID = contractorID
		}
		if due, _ := cmd.Flags().GetString("due"); due != "" {
			iso, err := dateparse.ParseDate(due)
			if err != nil {
				return fmt.Errorf("parse due date: %w", err)
			}
			t, _ := time.Parse("2006-01-02", iso)
			wo.DueDate = &t
		}
		wo.UpdatedAt = time.Now()

		return mutateWorkOrder(cmd, app, wo)
	},
}

var workorderCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a work order completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		wo, err := loadWorkOrder(cmd, app, args[0])
		if err != nil {
			return err
		}
		wo.Status = models.WorkOrderCompleted
		wo.UpdatedAt = time.Now()

		return mutateWorkOrder(cmd, app, wo)
	},
}

var workorderDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a work order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		result, err := app.Facade.Mutate(cmd.Context(), store.WorkOrders, outbox.OpDelete, args[0], nil)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "work order")
		return nil
	},
}

// loadWorkOrder fetches and decodes one work order for mutation.
func loadWorkOrder(cmd *cobra.Command, app *App, id string) (*models.WorkOrder, error) {
	rec, _, err := app.Facade.Get(cmd.Context(), store.WorkOrders, id)
	if err != nil {
		output.Error("%v", err)
		return nil, err
	}
	if rec == nil {
		output.Error("work order %s not found", id)
		return nil, fmt.Errorf("not found")
	}
	var wo models.WorkOrder
	if err := json.Unmarshal(rec.Payload, &wo); err != nil {
		return nil, fmt.Errorf("decode work order: %w", err)
	}
	return &wo, nil
}

// mutateWorkOrder sends the full updated snapshot.
func mutateWorkOrder(cmd *cobra.Command, app *App, wo *models.WorkOrder) error {
	data, err := json.Marshal(wo)
	if err != nil {
		return fmt.Errorf("encode work order: %w", err)
	}
	result, err := app.Facade.Mutate(cmd.Context(), store.WorkOrders, outbox.OpUpdate, wo.ID, data)
	if err != nil {
		output.Error("%v", err)
		return err
	}
	reportMutation(result, "work order")
	return nil
}

// runWorkOrderForm collects required fields interactively.
func runWorkOrderForm(wo *models.WorkOrder) error {
	priority := string(wo.Priority)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&wo.Title).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("title required")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Value(&wo.Description),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("Low", string(models.PriorityLow)),
					huh.NewOption("Medium", string(models.PriorityMedium)),
					huh.NewOption("High", string(models.PriorityHigh)),
					huh.NewOption("Urgent", string(models.PriorityUrgent)),
				).
				Value(&priority),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}
	wo.Priority = models.Priority(priority)
	return nil
}

// reportMutation prints the outcome of a write, distinguishing applied from
// queued.
func reportMutation(result *facade.MutationResult, noun string) {
	if result.Queued {
		output.Queued("%s %s saved locally, will deliver when online", noun, output.ShortID(result.ID))
		return
	}
	output.Success("%s %s saved", noun, output.ShortID(result.ID))
}

func init() {
	workorderListCmd.Flags().String("status", "", "Filter by status (open|in_progress|completed|cancelled)")
	workorderListCmd.Flags().String("priority", "", "Filter by priority (low|medium|high|urgent)")
	workorderListCmd.Flags().String("due-before", "", "Filter by due date (2026-03-01, +7d, tomorrow)")
	workorderListCmd.Flags().Bool("json", false, "Output as JSON")

	workorderShowCmd.Flags().Bool("json", false, "Output as JSON")

	workorderCreateCmd.Flags().String("priority", "", "Priority (low|medium|high|urgent)")
	workorderCreateCmd.Flags().String("description", "", "Description (- for stdin, @file to read a file)")
	workorderCreateCmd.Flags().String("unit", "", "Unit id")
	workorderCreateCmd.Flags().String("contractor", "", "Contractor id")
	workorderCreateCmd.Flags().String("due", "", "Due date (2026-03-01, +7d, tomorrow)")
	workorderCreateCmd.Flags().Float64("lat", 0, "Site latitude")
	workorderCreateCmd.Flags().Float64("lng", 0, "Site longitude")

	workorderUpdateCmd.Flags().String("status", "", "New status")
	workorderUpdateCmd.Flags().String("priority", "", "New priority")
	workorderUpdateCmd.Flags().String("title", "", "New title")
	workorderUpdateCmd.Flags().String("description", "", "New description")
	workorderUpdateCmd.Flags().String("contractor", "", "Assign contractor id")
	workorderUpdateCmd.Flags().String("due", "", "New due date")

	workorderCmd.AddCommand(workorderListCmd)
	workorderCmd.AddCommand(workorderShowCmd)
	workorderCmd.AddCommand(workorderCreateCmd)
	workorderCmd.AddCommand(workorderUpdateCmd)
	workorderCmd.AddCommand(workorderCompleteCmd)
	workorderCmd.AddCommand(workorderDeleteCmd)
	rootCmd.AddCommand(workorderCmd)
}
