// Package cmd provides the elicit CLI commands.
package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/internal/config"
	"github.com/elicitlabs/elicit/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "elicit",
	Short: "Elicit - guided ideation service",
	Long: `Elicit runs LLM-guided discovery conversations: it interviews the
user about an idea, distills the answers into a project brief, and
generates concrete ideas from that brief.

Run "elicit serve" to start the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	// Best-effort .env loading for local development; real deployments
	// set environment variables directly.
	_ = godotenv.Load()

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.Execute()
}

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config) log.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	slog.SetDefault(logger)
	return logger
}
