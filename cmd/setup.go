package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/davenhart/slopwatch/core/baseline"
	"github.com/davenhart/slopwatch/core/config"
	"github.com/davenhart/slopwatch/core/pattern"
	"github.com/davenhart/slopwatch/core/reaction"
	"github.com/davenhart/slopwatch/core/watcher"
)

// defaultConfigFile is the configuration read when --config is not given.
const defaultConfigFile = "slopwatch.yaml"

// loadConfig reads the configuration, falling back to the built-in defaults
// when no file exists. Directory arguments override the configured paths.
func loadConfig(args []string) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = defaultConfigFile
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := config.Default()
			applyPathArgs(cfg, args)
			return cfg, nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyPathArgs(cfg, args)
	return cfg, nil
}

func applyPathArgs(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Watch.Paths = args
	}
}

// buildEngine compiles the configured rules. A malformed rule aborts startup.
func buildEngine(cfg *config.Config) (*pattern.Engine, error) {
	engine, err := pattern.NewEngine(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rule configuration: %w", err)
	}
	return engine, nil
}

// buildStore creates the baseline store: SQLite-backed when baseline
// diffing is enabled, in-memory otherwise.
func buildStore(cfg *config.Config, logger *slog.Logger) baseline.Store {
	if cfg.Baseline.Enabled {
		return baseline.NewSQLiteStore(cfg.Baseline.Path, logger)
	}
	return baseline.NewMemoryStore()
}

// buildDispatcher wires the reaction handlers and their global switches.
func buildDispatcher(cfg *config.Config, logger *slog.Logger) *reaction.Dispatcher {
	commander := reaction.NewExecCommander()

	d := reaction.NewDispatcher(logger)
	d.Register(newColorAlertHandler(os.Stdout))
	d.Register(reaction.NewSoundHandler(commander, cfg.Reactions.SoundCommand, logger))
	d.Register(reaction.NewInterruptHandler(commander, reaction.NewPermissionProbe(commander), logger))
	if cfg.Reactions.WebhookURL != "" {
		d.Register(reaction.NewWebhookHandler(cfg.Reactions.WebhookURL, logger))
	}

	d.SetEnabled(pattern.ReactionAlert, cfg.Reactions.Alert)
	d.SetEnabled(pattern.ReactionSound, cfg.Reactions.Sound)
	d.SetEnabled(pattern.ReactionInterrupt, cfg.Reactions.Interrupt)
	d.SetEnabled(pattern.ReactionWebhook, cfg.Reactions.Webhook)

	return d
}

// watcherConfig translates the file configuration into a watcher session
// configuration.
func watcherConfig(cfg *config.Config) watcher.Config {
	return watcher.Config{
		Roots: cfg.Watch.Paths,
		Filter: watcher.FilterConfig{
			Extensions:   cfg.Watch.Extensions,
			IgnoreGlobs:  cfg.Watch.Ignore,
			UseGitignore: cfg.Watch.UseGitignore,
		},
		GrepPatterns:    cfg.Watch.Grep,
		Settle:          settleDuration(cfg),
		RateLimit:       cfg.Watch.RateLimit,
		DebounceWindow:  cfg.Debounce.Window(),
		DebounceMaxKeys: cfg.Debounce.MaxKeys,
		RecordBaseline:  cfg.Baseline.Enabled,
	}
}

func settleDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Watch.SettleMS) * time.Millisecond
}
