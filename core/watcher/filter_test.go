package watcher

import (
	"path/filepath"
	"testing"
)

func newTestFilter(t *testing.T, config FilterConfig, roots ...string) *FileFilter {
	t.Helper()
	f, err := NewFileFilter(config, roots, nil)
	if err != nil {
		t.Fatalf("NewFileFilter: %v", err)
	}
	return f
}

func TestFilterExtensionAllowList(t *testing.T) {
	dir := t.TempDir()
	f := newTestFilter(t, FilterConfig{Extensions: []string{".go", ".ts"}}, dir)

	if !f.Eligible(dir, filepath.Join(dir, "a.go")) {
		t.Error(".go should pass")
	}
	if !f.Eligible(dir, filepath.Join(dir, "A.TS")) {
		t.Error("extension check should be case-insensitive")
	}
	if f.Eligible(dir, filepath.Join(dir, "readme.md")) {
		t.Error(".md should be rejected")
	}
}

func TestFilterEmptyExtensionsPassAll(t *testing.T) {
	dir := t.TempDir()
	f := newTestFilter(t, FilterConfig{}, dir)

	if !f.Eligible(dir, filepath.Join(dir, "anything.xyz")) {
		t.Error("empty allow-list should pass every extension")
	}
}

func TestFilterIgnoreGlobs(t *testing.T) {
	dir := t.TempDir()
	f := newTestFilter(t, FilterConfig{IgnoreGlobs: []string{"node_modules", "*.gen.go"}}, dir)

	if f.Eligible(dir, filepath.Join(dir, "node_modules", "pkg", "file.ts")) {
		t.Error("files under an ignored directory must be rejected")
	}
	if f.Eligible(dir, filepath.Join(dir, "api.gen.go")) {
		t.Error("glob-ignored file must be rejected")
	}
	if !f.Eligible(dir, filepath.Join(dir, "api.go")) {
		t.Error("ordinary file must pass")
	}
}

func TestFilterGitignore(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".gitignore", "secret/\n*.tmp\n")

	f := newTestFilter(t, FilterConfig{UseGitignore: true}, dir)

	if f.Eligible(dir, filepath.Join(dir, "secret", "keys.go")) {
		t.Error("gitignored directory must be rejected")
	}
	if f.Eligible(dir, filepath.Join(dir, "scratch.tmp")) {
		t.Error("gitignored pattern must be rejected")
	}
	if !f.Eligible(dir, filepath.Join(dir, "main.go")) {
		t.Error("non-ignored file must pass")
	}
}

func TestFilterGitignoreDisabled(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".gitignore", "secret/\n")

	f := newTestFilter(t, FilterConfig{UseGitignore: false}, dir)

	if !f.Eligible(dir, filepath.Join(dir, "secret", "keys.go")) {
		t.Error("gitignore rules must not apply when disabled")
	}
}
