// Package cmd provides the slopwatch CLI commands.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "slopwatch",
	Short: "Slopwatch - catch low-effort AI output as it lands in your tree",
	Long: `Slopwatch watches source directories for the textual tells of low-effort
AI-assistant output (placeholder comments, stub markers, suppressed errors)
and reacts with alerts, sounds, or a keystroke interruption.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a slopwatch.yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// configureLogging installs the process-wide slog handler.
func configureLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
