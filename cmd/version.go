package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the landlord version",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("landlord %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
