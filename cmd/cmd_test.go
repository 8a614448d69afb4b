package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davenhart/slopwatch/core/pattern"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	configPath = ""

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
	assert.NotEmpty(t, cfg.Rules)
}

func TestLoadConfigArgsOverridePaths(t *testing.T) {
	chdir(t, t.TempDir())
	configPath = ""

	cfg, err := loadConfig([]string{"src", "lib"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "lib"}, cfg.Watch.Paths)
}

func TestLoadConfigReadsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch:\n  paths: [\"pkg\"]\n"), 0o644))

	configPath = path
	defer func() { configPath = "" }()

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg"}, cfg.Watch.Paths)
}

func TestWatcherConfigMapping(t *testing.T) {
	chdir(t, t.TempDir())
	configPath = ""

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	cfg.Watch.SettleMS = 250
	cfg.Debounce.WindowMS = 1500

	wc := watcherConfig(cfg)
	assert.Equal(t, cfg.Watch.Paths, wc.Roots)
	assert.Equal(t, 250*time.Millisecond, wc.Settle)
	assert.Equal(t, 1500*time.Millisecond, wc.DebounceWindow)
	assert.True(t, wc.RecordBaseline)
}

func TestRunInitWritesAndRefusesOverwrite(t *testing.T) {
	chdir(t, t.TempDir())
	configPath = ""

	require.NoError(t, runInit(initCmd, nil))

	data, err := os.ReadFile(defaultConfigFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rules:")

	err = runInit(initCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestPrintRulesListsEffectiveRuleSet(t *testing.T) {
	color.NoColor = true
	chdir(t, t.TempDir())
	configPath = ""

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	engine, err := buildEngine(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, engine.Rules(), false))

	out := buf.String()
	assert.Contains(t, out, "placeholder-comment")
	assert.Contains(t, out, "[HIGH]")
	assert.Equal(t, len(cfg.Rules), strings.Count(out, "\n"))
}

func TestPrintRulesJSON(t *testing.T) {
	rules := []pattern.Rule{{Name: "todo", Pattern: "TODO", Severity: pattern.SeverityLow}}

	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, rules, true))

	var decoded pattern.Rule
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "todo", decoded.Name)
}

func TestFormatMatchLine(t *testing.T) {
	color.NoColor = true

	match := &pattern.Match{
		Pattern:  "placeholder-comment",
		Severity: pattern.SeverityHigh,
		Message:  "NEW: detected placeholder comment",
		File:     "src/app.ts",
		Line:     12,
		LineText: "// placeholder",
	}

	line := formatMatchLine(match)
	assert.Contains(t, line, "[HIGH]")
	assert.Contains(t, line, "src/app.ts:12")
	assert.Contains(t, line, "placeholder-comment")
}
