package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"helpdesk/internal/database/migration"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}

		dir, _ := cmd.Flags().GetString("dir")
		steps, _ := cmd.Flags().GetInt("down")

		absPath, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid migrations directory: %w", err)
		}
		source := "file://" + absPath

		if steps > 0 {
			return migration.Rollback(cfg.DatabaseURL, source, steps, log)
		}
		return migration.Migrate(cfg.DatabaseURL, source, true, log)
	},
}

func init() {
	migrateCmd.Flags().String("dir", "./migrations", "Directory containing the migration files")
	migrateCmd.Flags().Int("down", 0, "Roll back this many migrations instead of applying")
}
