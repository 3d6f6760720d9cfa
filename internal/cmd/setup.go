package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/bakehouse/internal/database"
)

var (
	dropFirst bool
	cleanData bool
)

var setupCmd = &cobra.Command{
	Use:   "setup-schema",
	Short: "Create the record table for the mysql store",
	Long: `Creates the table that holds documents for the mysql store provider.
Each row is one record of one collection, stored as JSON.

Only needed when store.provider is mysql.`,
	RunE: setupSchema,
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop the existing table before creating it")
	setupCmd.Flags().BoolVar(&cleanData, "clean", false, "Delete all records after creating the table")
}

func setupSchema(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Setting up database schema...")

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if cfg.Store.Provider != "mysql" {
		return errors.New("setup-schema requires store.provider = mysql")
	}

	db, err := database.NewConnection(&cfg.Store.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if dropFirst {
		fmt.Printf("🗑️  Dropping table %s...\n", db.Table)
		if err := db.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	fmt.Printf("📋 Creating table %s...\n", db.Table)
	if err := db.SetupSchema(ctx); err != nil {
		return fmt.Errorf("failed to setup schema: %w", err)
	}

	if cleanData {
		fmt.Println("🧹 Removing existing records...")
		if err := db.CleanupData(ctx); err != nil {
			return fmt.Errorf("failed to clean data: %w", err)
		}
	}

	fmt.Println("✅ Schema setup complete!")
	return nil
}
