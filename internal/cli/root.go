// Package cli wires the taskvault commands: serve, migrate, version.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault/internal/logger"
)

// Global configuration variables
var (
	configFile  string
	config      *Config
	databaseURL string
	debug       bool
	jsonLogs    bool
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskvault",
		Short: "TaskVault - personal task tracker over HTTP",
		Long: `TaskVault is a personal task tracker exposed over HTTP.

Users register, authenticate, and manage tasks with priorities, free-form
tags, and a completion flag. Task listings are served through a TTL-bounded
read cache that is invalidated synchronously on every mutation.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger.Init(logger.Options{Level: level, JSON: jsonLogs})

			var err error
			config, err = LoadConfig(configFile)
			if err != nil {
				return err
			}

			if databaseURL != "" {
				config.Database.URL = databaseURL
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: taskvault.yaml)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "url", "", "database connection URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
