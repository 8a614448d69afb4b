package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/gobwas/glob"
)

// =============================================================================
// FilterConfig
// =============================================================================

// FilterConfig controls which changed files are read and processed.
type FilterConfig struct {
	// Extensions is the allow-list of file extensions, dot included.
	// Empty means all extensions pass.
	Extensions []string

	// IgnoreGlobs is the static deny-list, matched against the path, its
	// base name, and each path component.
	IgnoreGlobs []string

	// UseGitignore additionally applies the .gitignore rules found under
	// each watch root.
	UseGitignore bool
}

// =============================================================================
// FileFilter
// =============================================================================

// FileFilter decides file eligibility. Checks run in a fixed order:
// extension allow-list, then static ignore patterns, then gitignore rules.
// A file must pass all three to be read.
type FileFilter struct {
	extensions map[string]struct{}
	ignores    []glob.Glob
	gitignores map[string]gitignore.Matcher // keyed by watch root
}

// NewFileFilter compiles the filter for the given watch roots. Bad ignore
// globs are fatal; unreadable .gitignore files are logged and skipped.
func NewFileFilter(config FilterConfig, roots []string, logger *slog.Logger) (*FileFilter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ignores, err := compileIgnoreGlobs(config.IgnoreGlobs)
	if err != nil {
		return nil, err
	}

	f := &FileFilter{
		extensions: extensionSet(config.Extensions),
		ignores:    ignores,
		gitignores: make(map[string]gitignore.Matcher),
	}

	if config.UseGitignore {
		f.loadGitignores(roots, logger)
	}

	return f, nil
}

// extensionSet normalizes the allow-list to lower case.
func extensionSet(extensions []string) map[string]struct{} {
	if len(extensions) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}

// loadGitignores reads the .gitignore rules under each root.
func (f *FileFilter) loadGitignores(roots []string, logger *slog.Logger) {
	for _, root := range roots {
		patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			logger.Warn("gitignore rules unavailable", "root", root, "error", err)
			continue
		}
		if len(patterns) > 0 {
			f.gitignores[root] = gitignore.NewMatcher(patterns)
		}
	}
}

// =============================================================================
// Eligibility
// =============================================================================

// Eligible reports whether the file at path (under the given watch root)
// should be read and processed.
func (f *FileFilter) Eligible(root, path string) bool {
	if !f.extensionAllowed(path) {
		return false
	}
	if f.staticIgnored(path) {
		return false
	}
	return !f.gitIgnored(root, path)
}

// extensionAllowed applies the allow-list.
func (f *FileFilter) extensionAllowed(path string) bool {
	if f.extensions == nil {
		return true
	}
	_, ok := f.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// staticIgnored applies the deny-list globs.
func (f *FileFilter) staticIgnored(path string) bool {
	for _, g := range f.ignores {
		if globMatchesPath(g, path) {
			return true
		}
	}
	return false
}

// gitIgnored applies the root's .gitignore rules, when loaded.
func (f *FileFilter) gitIgnored(root, path string) bool {
	matcher, ok := f.gitignores[root]
	if !ok {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	return matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), false)
}
