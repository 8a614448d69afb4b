package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/davenhart/slopwatch/core/baseline"
	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// Scanner
// =============================================================================

// Scanner walks directory trees once and reports every rule match, using
// the same eligibility filters and baseline classification as a live watch
// session but no debouncing or reactions. It backs the audit command.
type Scanner struct {
	engine *pattern.Engine
	store  baseline.Store
	logger *slog.Logger
}

// NewScanner creates a scanner. store may be nil to skip baseline
// classification entirely.
func NewScanner(engine *pattern.Engine, store baseline.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{engine: engine, store: store, logger: logger}
}

// ScanConfig configures one scan pass.
type ScanConfig struct {
	// Roots are the directories to scan.
	Roots []string

	// WorkDir is the base for relative paths. Defaults to the process
	// working directory.
	WorkDir string

	// Filter controls file eligibility.
	Filter FilterConfig

	// GrepPatterns are content pre-filters, as in a watch session.
	GrepPatterns []string
}

// Scan walks every root and returns all matches in walk order. When a
// baseline store is present, known occurrences are included unmarked and
// new ones are NEW-marked; Scan records nothing.
func (s *Scanner) Scan(ctx context.Context, config ScanConfig) ([]*pattern.Match, error) {
	roots, workDir, err := resolvePaths(config.Roots, config.WorkDir)
	if err != nil {
		return nil, err
	}

	filter, err := NewFileFilter(config.Filter, roots, s.logger)
	if err != nil {
		return nil, err
	}

	greps, err := compileGreps(config.GrepPatterns)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Load(ctx); err != nil {
			s.logger.Warn("baseline load failed, classifying everything as new", "error", err)
		}
	}

	var matches []*pattern.Match
	for _, root := range roots {
		found, err := s.scanRoot(ctx, root, workDir, filter, greps)
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	return matches, nil
}

// scanRoot walks one root directory.
func (s *Scanner) scanRoot(ctx context.Context, root, workDir string, filter *FileFilter, greps []*regexp.Regexp) ([]*pattern.Match, error) {
	var matches []*pattern.Match

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // Unreadable subtree; skip it.
		}
		if d.IsDir() {
			if filter.staticIgnored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !filter.Eligible(root, path) {
			return nil
		}

		matches = append(matches, s.scanFile(path, workDir, greps)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// scanFile reads and matches one file.
func (s *Scanner) scanFile(path, workDir string, greps []*regexp.Regexp) []*pattern.Match {
	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("file read failed, skipping", "path", path, "error", err)
		}
		return nil
	}

	if !grepAny(greps, content) {
		return nil
	}

	rel, relErr := filepath.Rel(workDir, path)
	if relErr != nil {
		rel = path
	}

	var matches []*pattern.Match
	for i, line := range strings.Split(string(content), "\n") {
		for _, match := range s.engine.MatchLine(rel, i+1, line) {
			s.classify(match, line)
			matches = append(matches, match)
		}
	}
	return matches
}

// classify NEW-marks matches absent from the baseline.
func (s *Scanner) classify(match *pattern.Match, line string) {
	if s.store == nil {
		return
	}

	entry := baseline.Entry{
		File:    match.File,
		Line:    match.Line,
		Pattern: match.Pattern,
		Hash:    baseline.HashLine(line),
	}
	if s.store.IsNew(entry) {
		match.MarkNew()
	}
}

// grepAny reports whether any pre-filter matches the content.
func grepAny(greps []*regexp.Regexp, content []byte) bool {
	if len(greps) == 0 {
		return true
	}
	for _, re := range greps {
		if re.Match(content) {
			return true
		}
	}
	return false
}
