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

var contractorCmd = &cobra.Command{
	Use:     "contractor",
	Short:   "Manage contractors",
	GroupID: "entities",
}

var contractorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contractors",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		var filter store.Filter
		if specialty, _ := cmd.Flags().GetString("specialty"); specialty != "" {
			filter.Where = append(filter.Where, store.Eq("specialty", specialty))
		}

		result, err := app.Facade.List(cmd.Context(), store.Contractors, filter)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(result.Records)
		}

		if len(result.Records) == 0 {
			output.Info("No contractors found")
			return nil
		}
		for _, rec := range result.Records {
			var c models.Contractor
			if err := json.Unmarshal(rec.Payload, &c); err != nil {
				continue
			}
			fmt.Println(output.FormatContractorShort(&c))
		}
		if result.FromCache {
			lastSync, _ := app.Store.LastSyncedAt(store.Contractors)
			fmt.Println(output.CacheNote(lastSync))
		}
		return nil
	},
}

var contractorCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a contractor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		now := time.Now()
		c := models.Contractor{
			OrganizationID: app.OrgID,
			Name:           args[0],
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		c.Specialty, _ = cmd.Flags().GetString("specialty")
		c.Phone, _ = cmd.Flags().GetString("phone")
		c.Rating, _ = cmd.Flags().GetFloat64("rating")

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode contractor: %w", err)
		}
		result, err := app.Facade.Mutate(cmd.Context(), store.Contractors, outbox.OpInsert, "", data)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "contractor")
		return nil
	},
}

var contractorUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a contractor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		rec, _, err := app.Facade.Get(cmd.Context(), store.Contractors, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if rec == nil {
			output.Error("contractor %s not found", args[0])
			return fmt.Errorf("not found")
		}
		var c models.Contractor
		if err := json.Unmarshal(rec.Payload, &c); err != nil {
			return fmt.Errorf("decode contractor: %w", err)
		}

		if name, _ := cmd.Flags().GetString("name"); name != "" {
			c.Name = name
		}
		if specialty, _ := cmd.Flags().GetString("specialty"); cmd.Flags().Changed("specialty") {
			c.Specialty = specialty
		}
		if phone, _ := cmd.Flags().GetString("phone"); cmd.Flags().Changed("phone") {
			c.Phone = phone
		}
		if cmd.Flags().Changed("rating") {
			c.Rating, _ = cmd.Flags().GetFloat64("rating")
		}
		c.UpdatedAt = time.Now()

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode contractor: %w", err)
		}
		result, err := app.Facade.Mutate(cmd.Context(), store.Contractors, outbox.OpUpdate, c.ID, data)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "contractor")
		return nil
	},
}

var contractorDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a contractor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		result, err := app.Facade.Mutate(cmd.Context(), store.Contractors, outbox.OpDelete, args[0], nil)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		reportMutation(result, "contractor")
		return nil
	},
}

func init() {
	contractorListCmd.Flags().String("specialty", "", "Filter by specialty")
	contractorListCmd.Flags().Bool("json", false, "Output as JSON")

	contractorCreateCmd.Flags().String("specialty", "", "Specialty (plumbing, electrical, ...)")
	contractorCreateCmd.Flags().String("phone", "", "Phone number")
	contractorCreateCmd.Flags().Float64("rating", 0, "Rating 0-5")

	contractorUpdateCmd.Flags().String("name", "", "New name")
	contractorUpdateCmd.Flags().String("specialty", "", "New specialty")
	contractorUpdateCmd.Flags().String("phone", "", "New phone number")
	contractorUpdateCmd.Flags().Float64("rating", 0, "New rating")

	contractorCmd.AddCommand(contractorListCmd)
	contractorCmd.AddCommand(contractorCreateCmd)
	contractorCmd.AddCommand(contractorUpdateCmd)
	contractorCmd.AddCommand(contractorDeleteCmd)
	rootCmd.AddCommand(contractorCmd)
}
