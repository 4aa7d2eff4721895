package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and seed default priorities",
	Long: `Apply the taskvault schema (users, priorities, tasks, tags, task_tags)
and seed the default priority rows. Safe to run repeatedly.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if config.Database.URL == "" {
		return fmt.Errorf("no database URL configured (set database.url, DATABASE_URL, or --url)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	db, err := store.Open(ctx, config.Database.URL, config.Database.MaxConnections)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.InitSchema(ctx, db); err != nil {
		return err
	}

	cmd.Println("schema is up to date")
	return nil
}
