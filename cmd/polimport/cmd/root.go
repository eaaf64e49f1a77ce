package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	dbDriver   string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "polimport",
	Short: "Insurance policy batch ingestion service",
	Long:  `polimport ingests insurance-policy batches from CSV/XLSX uploads, validates them against technical and business rules, and upserts them with full audit traceability.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database URL (postgres://... or sqlite file path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}
