package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"rolplay-assistant-be/internal/config"
	"rolplay-assistant-be/pkg/database"
	"rolplay-assistant-be/pkg/dataset"
)

func main() {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the fact table and optionally seed it from the workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), config.Load(), seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "replace the table contents with FACT_FILE_PATH")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, seed bool) error {
	if cfg.Dataset.Connection == "" {
		return fmt.Errorf("DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Dataset.Connection, cfg.App.DebugMode)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	log.Println("Running AutoMigrate for fact_rolplay_sim...")
	if err := dataset.Migrate(ctx, db); err != nil {
		return err
	}

	if seed {
		ds, err := dataset.NewExcelLoader(cfg.Dataset.FilePath, cfg.Dataset.Sheet).Load(ctx)
		if err != nil {
			return err
		}
		n, err := dataset.Import(ctx, db, ds, 500)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		log.Printf("Seeded %d records from %s", n, cfg.Dataset.FilePath)
	}

	log.Println("✅ Success: database migration completed.")
	return nil
}
