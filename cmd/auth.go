package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/appconfig"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/remote"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage backend authentication",
	GroupID: "system",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store backend credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")
		if serverURL == "" {
			serverURL = appconfig.GetServerURL()
		}

		apiKey, _ := cmd.Flags().GetString("api-key")
		if apiKey == "" {
			fmt.Print("API key: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read api key: %w", err)
			}
			apiKey = strings.TrimSpace(line)
		}
		if apiKey == "" {
			return fmt.Errorf("api key required")
		}

		email, _ := cmd.Flags().GetString("email")

		deviceID, err := appconfig.GetDeviceID()
		if err != nil {
			return fmt.Errorf("get device id: %w", err)
		}

		// Verify the key before storing it
		client := remote.New(serverURL, apiKey, "")
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := client.HealthCheck(ctx); err != nil {
			output.Warning("could not verify credentials: %v", err)
		}

		creds := &appconfig.AuthCredentials{
			APIKey:    apiKey,
			Email:     email,
			ServerURL: serverURL,
			DeviceID:  deviceID,
		}
		if err := appconfig.SaveAuth(creds); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}

		output.Success("Credentials saved for %s", serverURL)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appconfig.ClearAuth(); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := appconfig.LoadAuth()
		if err != nil {
			output.Error("load credentials: %v", err)
			return err
		}
		if creds == nil || creds.APIKey == "" {
			fmt.Println("Not logged in (run: landlord auth login)")
			return nil
		}
		fmt.Printf("Server: %s\n", creds.ServerURL)
		if creds.Email != "" {
			fmt.Printf("Email: %s\n", creds.Email)
		}
		fmt.Printf("Device: %s\n", creds.DeviceID)
		return nil
	},
}

func init() {
	authLoginCmd.Flags().String("server", "", "Backend server URL")
	authLoginCmd.Flags().String("api-key", "", "API key (prompted if omitted)")
	authLoginCmd.Flags().String("email", "", "Account email, informational only")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
