package cmd

import (
	"fmt"

	"github.com/killallgit/sttclient/internal/database"
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/pkg/config"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the history database",
	Long: `Create or update the schema of the local history database.

The database lives at database.path. Running migrate on an up to date
database is harmless.

Available subcommands:
  status  - Show whether the history table exists and how many rows it holds`,
	RunE: runMigrate,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show history database status",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.InitializeFromConfig()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "History database at %s is up to date\n", config.GetString("database.path"))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	path := config.GetString("database.path")
	db, err := database.Initialize(path, false)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", path)
	if !db.Migrator().HasTable(&models.TaskRecord{}) {
		fmt.Fprintln(out, "History table: missing (run 'sttclient migrate')")
		return nil
	}

	var count int64
	if err := db.Model(&models.TaskRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("counting history records: %w", err)
	}
	fmt.Fprintln(out, "History table: present")
	fmt.Fprintf(out, "Records: %d\n", count)
	return nil
}
