// Package config loads and validates the slopwatch configuration. The
// configuration is a static YAML document read once at startup; rule
// patterns are compiled (and thus validated) before any watching begins.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoWatchPaths indicates the configuration names no directories.
	ErrNoWatchPaths = errors.New("no watch paths configured")

	// ErrWebhookURL indicates webhook reactions are enabled without a URL.
	ErrWebhookURL = errors.New("webhook enabled but no webhook_url configured")

	// ErrNegativeWindow indicates a negative debounce window.
	ErrNegativeWindow = errors.New("debounce window must not be negative")
)

// =============================================================================
// Config
// =============================================================================

// Config is the full slopwatch configuration.
type Config struct {
	Watch     WatchConfig     `yaml:"watch"`
	Debounce  DebounceConfig  `yaml:"debounce"`
	Baseline  BaselineConfig  `yaml:"baseline"`
	Reactions ReactionsConfig `yaml:"reactions"`
	Rules     []pattern.Rule  `yaml:"rules"`
}

// WatchConfig configures directory watching and file filtering.
type WatchConfig struct {
	// Paths are the root directories to watch recursively.
	Paths []string `yaml:"paths"`

	// Extensions is the allow-list of file extensions (with dot).
	Extensions []string `yaml:"extensions"`

	// Ignore are glob deny-list patterns matched against paths.
	Ignore []string `yaml:"ignore"`

	// UseGitignore enables .gitignore-based exclusion per watch root.
	UseGitignore bool `yaml:"use_gitignore"`

	// Grep are regex pre-filters: when set, a file whose content matches
	// none of them produces no matches at all.
	Grep []string `yaml:"grep"`

	// SettleMS is how long to let filesystem events settle before reading,
	// so one logical save produces one processing pass.
	SettleMS int `yaml:"settle_ms"`

	// RateLimit caps processed file events per second. 0 means unlimited.
	RateLimit int `yaml:"rate_limit"`
}

// DebounceConfig configures repeat-alert suppression.
type DebounceConfig struct {
	// WindowMS suppresses repeats of one occurrence key for this many
	// milliseconds. 0 disables debouncing.
	WindowMS int `yaml:"window_ms"`

	// MaxKeys bounds the suppression key set.
	MaxKeys int `yaml:"max_keys"`
}

// Window returns the debounce window as a duration.
func (d DebounceConfig) Window() time.Duration {
	return time.Duration(d.WindowMS) * time.Millisecond
}

// BaselineConfig configures baseline persistence.
type BaselineConfig struct {
	// Enabled turns baseline diffing on. When off, every match alerts and
	// nothing is persisted.
	Enabled bool `yaml:"enabled"`

	// Path is the baseline database location.
	Path string `yaml:"path"`
}

// ReactionsConfig globally enables or disables reaction kinds. A kind
// disabled here never runs, regardless of per-rule opt-in.
type ReactionsConfig struct {
	Alert     bool `yaml:"alert"`
	Sound     bool `yaml:"sound"`
	Interrupt bool `yaml:"interrupt"`
	Webhook   bool `yaml:"webhook"`

	// WebhookURL receives match payloads when webhook reactions run.
	WebhookURL string `yaml:"webhook_url"`

	// SoundCommand overrides the platform audio command.
	SoundCommand []string `yaml:"sound_command,omitempty"`
}

// Enabled reports the global switch for one reaction kind.
func (r ReactionsConfig) Enabled(kind pattern.Reaction) bool {
	switch kind {
	case pattern.ReactionAlert:
		return r.Alert
	case pattern.ReactionSound:
		return r.Sound
	case pattern.ReactionInterrupt:
		return r.Interrupt
	case pattern.ReactionWebhook:
		return r.Webhook
	default:
		return false
	}
}

// =============================================================================
// Defaults
// =============================================================================

// Default returns the built-in configuration: common source extensions, the
// stock slop rule set, alerts and sounds on, and a two second debounce.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Paths:        []string{"."},
			Extensions:   defaultExtensions(),
			Ignore:       defaultIgnore(),
			UseGitignore: true,
			SettleMS:     100,
			RateLimit:    100,
		},
		Debounce: DebounceConfig{
			WindowMS: 2000,
			MaxKeys:  4096,
		},
		Baseline: BaselineConfig{
			Enabled: true,
			Path:    ".slopwatch/baseline.db",
		},
		Reactions: ReactionsConfig{
			Alert: true,
			Sound: true,
		},
		Rules: DefaultRules(),
	}
}

func defaultExtensions() []string {
	return []string{
		".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rb",
		".java", ".kt", ".rs", ".c", ".cc", ".cpp", ".h",
		".cs", ".swift", ".sh",
	}
}

func defaultIgnore() []string {
	return []string{
		".git", "node_modules", "vendor", "dist", "build",
		"target", "__pycache__", ".next", ".cache", ".slopwatch",
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads a YAML configuration from path, overlaying it on the defaults.
// Any error here is fatal to startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks cross-field constraints. Rule patterns are validated
// separately when the engine compiles them.
func (c *Config) Validate() error {
	if len(c.Watch.Paths) == 0 {
		return ErrNoWatchPaths
	}
	if c.Debounce.WindowMS < 0 {
		return ErrNegativeWindow
	}
	if c.Reactions.Webhook && c.Reactions.WebhookURL == "" {
		return ErrWebhookURL
	}
	return nil
}

// Encode renders the configuration as YAML.
func (c *Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}
