package cmd

import (
	"fmt"

	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  `Create the database file if needed and add any missing tables and columns. Existing records are kept.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := database.Init(cfg.Database.Path); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		fmt.Println("Database migrations completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
