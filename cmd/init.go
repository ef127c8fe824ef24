package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erebuskaimoros/Landlord-sub000/internal/localdb"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/output"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// schemaMigrations is the ordered schema history of the local database.
var schemaMigrations = []localdb.Migration{
	func(conn *sql.DB) error {
		if err := store.InitSchema(conn); err != nil {
			return err
		}
		return outbox.InitSchema(conn)
	},
}

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize the local offline cache",
	Long:    `Creates the local .landlord directory and SQLite database used for the offline cache and sync queue.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		// Check if already initialized
		if _, err := os.Stat(localdb.DataDir(baseDir)); err == nil {
			output.Warning(".landlord/ already exists")
			return nil
		}

		db, err := localdb.Initialize(baseDir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer db.Close()

		if err := db.Migrate(schemaMigrations); err != nil {
			output.Error("failed to create schema: %v", err)
			return err
		}

		fmt.Println("INITIALIZED .landlord/")

		// Keep the cache out of version control
		gitignorePath := filepath.Join(baseDir, ".gitignore")
		if _, err := os.Stat(filepath.Join(baseDir, ".git")); err == nil {
			addToGitignore(gitignorePath)
		}

		return nil
	},
}

func addToGitignore(path string) {
	content, _ := os.ReadFile(path)
	if strings.Contains(string(content), ".landlord/") {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		fmt.Fprintln(f)
	}
	fmt.Fprintln(f, ".landlord/")
}

func init() {
	rootCmd.AddCommand(initCmd)
}
