package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/davenhart/slopwatch/core/watcher"
)

var (
	auditJSON  bool
	auditRules bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [dir...]",
	Short: "Scan directories once and report every match",
	Long: `Audit walks the configured directories once, applies the rule set to
every eligible file, and prints the matches. Occurrences already present in
the baseline are reported without the new marker.

The command exits non-zero when any new occurrence is found.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "emit matches as JSON lines instead of colored notices")
	auditCmd.Flags().BoolVar(&auditRules, "rules", false, "list the effective rule set and exit")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
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

	if auditRules {
		return printRules(os.Stdout, engine.Rules(), auditJSON)
	}

	store := buildStore(cfg, logger)
	defer store.Close()

	scanner := watcher.NewScanner(engine, store, logger)
	matches, err := scanner.Scan(cmd.Context(), watcher.ScanConfig{
		Roots: cfg.Watch.Paths,
		Filter: watcher.FilterConfig{
			Extensions:   cfg.Watch.Extensions,
			IgnoreGlobs:  cfg.Watch.Ignore,
			UseGitignore: cfg.Watch.UseGitignore,
		},
		GrepPatterns: cfg.Watch.Grep,
	})
	if err != nil {
		return err
	}

	printer := newJSONPrinter(os.Stdout)

	newCount := 0
	for _, match := range matches {
		if match.IsNew {
			newCount++
		}
		if auditJSON {
			if err := printer.Print(match); err != nil {
				return err
			}
			continue
		}
		fmt.Println(formatMatchLine(match))
	}

	if newCount > 0 {
		return fmt.Errorf("audit found %d new occurrence(s) across %d match(es)", newCount, len(matches))
	}

	logger.Info("audit clean", slog.Int("matches", len(matches)))
	return nil
}
