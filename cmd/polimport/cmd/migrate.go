package cmd

import (
	"fmt"

	"github.com/coverline/polimport/internal/db"
	"github.com/coverline/polimport/internal/logging"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := logging.New(cfg.Logging)

		if err := db.RunMigrations(cfg.Database.Driver, cfg.Database.URL); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}

		logger.Info("migrations applied", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
