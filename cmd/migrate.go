package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/db"
	"github.com/elicitlabs/elicit/internal/config"
)

// newMigrateCmd creates the migrate command. Serve runs migrations on
// startup; this command exists for operators who migrate separately
// from deployment.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(*cobra.Command, []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("migrations applied", "database", cfg.PostgresDBName)
	return nil
}
