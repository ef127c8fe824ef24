package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/appconfig"
	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/proximity"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// flagLocation is a LocationProvider backed by command-line flags. CLI hosts
// have no GPS; the position comes from the caller.
type flagLocation struct {
	lat, lng, accuracy float64
}

func (f flagLocation) Current(ctx context.Context) (*models.Position, error) {
	return &models.Position{
		Latitude:       f.lat,
		Longitude:      f.lng,
		AccuracyMeters: f.accuracy,
		Timestamp:      time.Now(),
	}, nil
}

// printNavigator shows the matched record instead of opening a screen.
type printNavigator struct{}

func (printNavigator) Navigate(match models.ProximityMatch) error {
	fmt.Printf("\n%s %s\n", match.EntityType, output.ShortID(match.Record.ID))
	switch match.EntityType {
	case store.WorkOrders.Name:
		var wo models.WorkOrder
		if err := json.Unmarshal(match.Record.Payload, &wo); err == nil {
			rendered, err := output.RenderMarkdown(output.WorkOrderMarkdown(&wo))
			if err == nil {
				fmt.Println(rendered)
				return nil
			}
		}
	case store.Units.Name:
		var u models.Unit
		if err := json.Unmarshal(match.Record.Payload, &u); err == nil {
			fmt.Println(output.FormatUnitShort(&u))
			return nil
		}
	}
	return output.JSON(match.Record)
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Find geotagged work sites near a position",
	Long: `Matches a position against geotagged work orders and units in the local
cache. Works offline. A single match is shown directly; several matches
open a picker.`,
	GroupID: "entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !appconfig.GetProximityEnabled() {
			output.Warning("proximity matching is disabled (landlord config set proximity.enabled true)")
			return nil
		}

		app, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer app.Close()

		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		accuracy, _ := cmd.Flags().GetFloat64("accuracy")
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
			return fmt.Errorf("--lat and --lng are required")
		}

		cfg := proximity.Config{
			RadiusMeters:   appconfig.GetProximityRadius(),
			AccuracyMeters: appconfig.GetProximityAccuracy(),
		}
		if radius, _ := cmd.Flags().GetFloat64("radius"); cmd.Flags().Changed("radius") {
			cfg.RadiusMeters = radius
		}

		matcher := proximity.New(
			app.Store,
			flagLocation{lat: lat, lng: lng, accuracy: accuracy},
			printNavigator{},
			app.OrgID,
			cfg,
		)

		outcome, err := matcher.CheckNow(cmd.Context(), store.WorkOrders, store.Units)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		switch outcome.Action {
		case proximity.ActionNone:
			if accuracy > cfg.AccuracyMeters {
				output.Warning("position fix too coarse (%.0fm > %.0fm), not matching", accuracy, cfg.AccuracyMeters)
				return nil
			}
			output.Info("Nothing within %.0fm", cfg.RadiusMeters)
			return nil

		case proximity.ActionNavigated:
			// printNavigator already showed it
			return nil

		case proximity.ActionChoose:
			match, err := pickMatch(outcome.Matches)
			if err != nil {
				return err
			}
			return matcher.Navigate(*match)
		}
		return nil
	},
}

// pickMatch lets the user choose between several nearby records.
func pickMatch(matches []models.ProximityMatch) (*models.ProximityMatch, error) {
	options := make([]huh.Option[int], 0, len(matches))
	for i, m := range matches {
		label := fmt.Sprintf("%s %s (%s away)",
			m.EntityType, output.ShortID(m.Record.ID), output.FormatDistance(m.DistanceMeters))
		if name := recordLabel(m); name != "" {
			label = fmt.Sprintf("%s: %s (%s away)", m.EntityType, name, output.FormatDistance(m.DistanceMeters))
		}
		options = append(options, huh.NewOption(label, i))
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(fmt.Sprintf("%d work sites nearby", len(matches))).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}
	return &matches[choice], nil
}

// recordLabel extracts a display name from a matched payload.
func recordLabel(m models.ProximityMatch) string {
	switch m.EntityType {
	case store.WorkOrders.Name:
		var wo models.WorkOrder
		if err := json.Unmarshal(m.Record.Payload, &wo); err == nil {
			return wo.Title
		}
	case store.Units.Name:
		var u models.Unit
		if err := json.Unmarshal(m.Record.Payload, &u); err == nil {
			return u.Name
		}
	}
	return ""
}

func init() {
	nearbyCmd.Flags().Float64("lat", 0, "Current latitude")
	nearbyCmd.Flags().Float64("lng", 0, "Current longitude")
	nearbyCmd.Flags().Float64("accuracy", 10, "Position accuracy in meters")
	nearbyCmd.Flags().Float64("radius", 0, "Match radius in meters (default from config)")

	rootCmd.AddCommand(nearbyCmd)
}
