package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/appconfig"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"organization_id",
	"sync.url",
	"sync.interval",
	"sync.on_start",
	"proximity.enabled",
	"proximity.radius_meters",
	"proximity.accuracy_meters",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q (use true/false/1/0)", val)
	}
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage landlord configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if !isValidConfigKey(key) {
			output.Error("unknown config key %q (valid: %s)", key, strings.Join(validConfigKeys, ", "))
			return fmt.Errorf("unknown key")
		}

		cfg, err := appconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		switch key {
		case "organization_id":
			cfg.OrganizationID = val
		case "sync.url":
			cfg.Sync.URL = val
		case "sync.interval":
			cfg.Sync.Interval = val
		case "sync.on_start":
			b, err := parseBool(val)
			if err != nil {
				return err
			}
			cfg.Sync.OnStart = boolPtr(b)
		case "proximity.enabled":
			b, err := parseBool(val)
			if err != nil {
				return err
			}
			cfg.Proximity.Enabled = boolPtr(b)
		case "proximity.radius_meters":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("invalid radius %q", val)
			}
			cfg.Proximity.RadiusMeters = floatPtr(f)
		case "proximity.accuracy_meters":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("invalid accuracy %q", val)
			}
			cfg.Proximity.AccuracyMeters = floatPtr(f)
		}

		if err := appconfig.SaveConfig(cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("%s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show config values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := map[string]string{
			"organization_id":           appconfig.GetOrganizationID(),
			"sync.url":                  appconfig.GetServerURL(),
			"sync.interval":             appconfig.GetSyncInterval().String(),
			"sync.on_start":             strconv.FormatBool(appconfig.GetSyncOnStart()),
			"proximity.enabled":         strconv.FormatBool(appconfig.GetProximityEnabled()),
			"proximity.radius_meters":   strconv.FormatFloat(appconfig.GetProximityRadius(), 'f', -1, 64),
			"proximity.accuracy_meters": strconv.FormatFloat(appconfig.GetProximityAccuracy(), 'f', -1, 64),
		}

		if len(args) == 1 {
			key := args[0]
			if !isValidConfigKey(key) {
				output.Error("unknown config key %q", key)
				return fmt.Errorf("unknown key")
			}
			fmt.Println(values[key])
			return nil
		}

		for _, k := range validConfigKeys {
			fmt.Printf("%s = %s\n", k, values[k])
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
