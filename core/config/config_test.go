package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davenhart/slopwatch/core/pattern"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
	assert.True(t, cfg.Watch.UseGitignore)
	assert.Equal(t, 2*time.Second, cfg.Debounce.Window())
	assert.True(t, cfg.Baseline.Enabled)
	assert.True(t, cfg.Reactions.Alert)
	assert.False(t, cfg.Reactions.Interrupt, "interrupt requires explicit opt-in")
	assert.NotEmpty(t, cfg.Rules)

	// Every stock rule must compile.
	_, err := pattern.NewEngine(cfg.Rules)
	require.NoError(t, err)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
watch:
  paths: [src, lib]
  grep: [FIXME]
debounce:
  window_ms: 0
rules:
  - name: todo
    pattern: TODO
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"src", "lib"}, cfg.Watch.Paths)
	assert.Equal(t, []string{"FIXME"}, cfg.Watch.Grep)
	assert.Equal(t, time.Duration(0), cfg.Debounce.Window())
	assert.True(t, cfg.Watch.UseGitignore, "untouched fields keep defaults")

	require.Len(t, cfg.Rules, 1, "user rules replace the stock set")
	assert.Equal(t, "todo", cfg.Rules[0].Name)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("watch: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "no watch paths",
			mutate:  func(c *Config) { c.Watch.Paths = nil },
			wantErr: ErrNoWatchPaths,
		},
		{
			name:    "negative debounce window",
			mutate:  func(c *Config) { c.Debounce.WindowMS = -1 },
			wantErr: ErrNegativeWindow,
		},
		{
			name:    "webhook without url",
			mutate:  func(c *Config) { c.Reactions.Webhook = true },
			wantErr: ErrWebhookURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slopwatch.yaml")
	data, err := Default().Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Watch.Extensions, cfg.Watch.Extensions)
}

func TestReactionsEnabled(t *testing.T) {
	r := ReactionsConfig{Alert: true, Sound: false}

	assert.True(t, r.Enabled(pattern.ReactionAlert))
	assert.False(t, r.Enabled(pattern.ReactionSound))
	assert.False(t, r.Enabled(pattern.Reaction("bogus")))
}
