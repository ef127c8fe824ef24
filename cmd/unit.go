package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

var unitCmd = &cobra.Command{
	Use:     "unit",
	Short:   "Manage rentable units",
	GroupID: "entities",
}

var unitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List units",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		var filter store.Filter
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			if !models.IsValidUnitStatus(models.UnitStatus(status)) {
				return fmt.Errorf("invalid status %q", status)
			}
			filter.Where = append(filter.Where, store.Eq("status", status))
		}

		result, err := app.Facade.List(cmd.Context(), store.Units, filter)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(result.Records)
		}

		if len(result.Records) == 0 {
			output.Info("No units found")
			return nil
		}
		for _, rec := range result.Records {
			var u models.Unit
			if err := json.Unmarshal(rec.Payload, &u); err != nil {
				continue
			}
			fmt.Println(output.FormatUnitShort(&u))
		}
		if result.FromCache {
			lastSync, _ := app.Store.LastSyncedAt(store.Units)
			fmt.Println(output.CacheNote(lastSync))
		}
		return nil
	},
}

var unitCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		now := time.Now()
		u := models.Unit{
			OrganizationID: app.OrgID,
			Name:           args[0],
			Status:         models.UnitVacant,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if address, _ := cmd.Flags().GetString("address"); address != "" {
			u.Address = address
		}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			s := models.UnitStatus(status)
			if !models.IsValidUnitStatus(s) {
				return fmt.Errorf("invalid status %q", status)
			}
			u.Status = s
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			lng, _ := cmd.Flags().GetFloat64("lng")
			u.Latitude = &lat
			u.Longitude = &lng
		}

		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode unit: %w", err)
		}
		result, err := app.Facade.Mutate(cmd.Context(), store.Units, outbox.OpInsert, "", data)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "unit")
		return nil
	},
}

var unitUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		rec, _, err := app.Facade.Get(cmd.Context(), store.Units, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if rec == nil {
			output.Error("unit %s not found", args[0])
			return fmt.Errorf("not found")
		}
		var u models.Unit
		if err := json.Unmarshal(rec.Payload, &u); err != nil {
			return fmt.Errorf("decode unit: %w", err)
		}

		if name, _ := cmd.Flags().GetString("name"); name != "" {
			u.Name = name
		}
		if address, _ := cmd.Flags().GetString("address"); cmd.Flags().Changed("address") {
			u.Address = address
		}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			s := models.UnitStatus(status)
			if !models.IsValidUnitStatus(s) {
				return fmt.Errorf("invalid status %q", status)
			}
			u.Status = s
		}
		u.UpdatedAt = time.Now()

		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode unit: %w", err)
		}
		result, err := app.Facade.Mutate(cmd.Context(), store.Units, outbox.OpUpdate, u.ID, data)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "unit")
		return nil
	},
}

var unitDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		result, err := app.Facade.Mutate(cmd.Context(), store.Units, outbox.OpDelete, args[0], nil)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "unit")
		return nil
	},
}

func init() {
	unitListCmd.Flags().String("status", "", "Filter by status (vacant|occupied|maintenance)")
	unitListCmd.Flags().Bool("json", false, "Output as JSON")

	unitCreateCmd.Flags().String("address", "", "Street address")
	unitCreateCmd.Flags().String("status", "", "Status (vacant|occupied|maintenance)")
	unitCreateCmd.Flags().Float64("lat", 0, "Latitude")
	unitCreateCmd.Flags().Float64("lng", 0, "Longitude")

	unitUpdateCmd.Flags().String("name", "", "New name")
	unitUpdateCmd.Flags().String("address", "", "New address")
	unitUpdateCmd.Flags().String("status", "", "New status")

	unitCmd.AddCommand(unitListCmd)
	unitCmd.AddCommand(unitCreateCmd)
	unitCmd.AddCommand(unitUpdateCmd)
	unitCmd.AddCommand(unitDeleteCmd)
	rootCmd.AddCommand(unitCmd)
}
