package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davenhart/slopwatch/core/pattern"
	"github.com/davenhart/slopwatch/core/watcher"
)

var watchJSON bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Watch directories and react to new matches as files are saved",
	Long: `Watch starts a live session over the configured directories. Every save
is read, matched against the rule set, diffed against the baseline, and
debounced; occurrences that survive trigger the configured reactions.

The session runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "emit matches as JSON lines instead of colored notices")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	store := buildStore(cfg, logger)
	defer store.Close()

	dispatcher := buildDispatcher(cfg, logger)
	if watchJSON {
		// JSON mode owns stdout; the line printer stays quiet.
		dispatcher.SetEnabled(pattern.ReactionAlert, false)
	}

	w := watcher.New(watcherConfig(cfg), engine, store, dispatcher, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("watching", slog.Any("paths", cfg.Watch.Paths))

	printer := newJSONPrinter(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case match, ok := <-w.Matches():
			if !ok {
				return nil
			}
			if watchJSON {
				if err := printer.Print(match); err != nil {
					logger.Warn("failed to encode match", slog.String("error", err.Error()))
				}
			}
		}
	}
}
