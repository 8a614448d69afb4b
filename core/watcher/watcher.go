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
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/davenhart/slopwatch/core/baseline"
	"github.com/davenhart/slopwatch/core/debounce"
	"github.com/davenhart/slopwatch/core/pattern"
	"github.com/davenhart/slopwatch/core/reaction"
)

// =============================================================================
// Constants
// =============================================================================

// matchBuffer is the capacity of the emitted match channel.
const matchBuffer = 256

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrAlreadyWatching indicates Start was called on an active session.
	ErrAlreadyWatching = errors.New("watch session already active")

	// ErrBadGrepPattern indicates a grep pre-filter could not be compiled.
	ErrBadGrepPattern = errors.New("invalid grep pattern")
)

// =============================================================================
// Config
// =============================================================================

// Config configures a watch session.
type Config struct {
	// Roots are the directories to watch recursively.
	Roots []string

	// WorkDir is the base for the relative paths carried by matches and
	// baseline entries. Defaults to the process working directory.
	WorkDir string

	// Filter controls file eligibility.
	Filter FilterConfig

	// GrepPatterns are content pre-filters: when non-empty, a file whose
	// full content matches none of them produces no matches at all.
	GrepPatterns []string

	// Settle is the raw-event coalescing window.
	Settle time.Duration

	// RateLimit caps processed events per second. 0 means unlimited.
	RateLimit int

	// DebounceWindow suppresses repeat alerts per occurrence key.
	DebounceWindow time.Duration

	// DebounceMaxKeys bounds the suppression key set.
	DebounceMaxKeys int

	// RecordBaseline enables baseline diffing: known occurrences are
	// suppressed, new ones are NEW-marked and persisted.
	RecordBaseline bool
}

// =============================================================================
// Watcher
// =============================================================================

// Watcher runs the full detection pipeline for one watch session:
// filesystem event, filter, read, pattern engine, baseline, debounce,
// reactions. Sessions transition Stopped -> Starting -> Watching -> Stopped,
// and a stopped watcher may be started again as a fresh session with the
// baseline reloaded.
type Watcher struct {
	config     Config
	engine     *pattern.Engine
	store      baseline.Store
	dispatcher *reaction.Dispatcher
	logger     *slog.Logger

	state atomic.Int32

	// Session state, rebuilt on every Start.
	mu      sync.Mutex
	fsw     *FSWatcher
	filter  *FileFilter
	gate    *debounce.Gate
	cache   *contentCache
	greps   []*regexp.Regexp
	limiter *rate.Limiter
	roots   []string
	workDir string
	matches chan *pattern.Match
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	flight  singleflight.Group
}

// New creates a watcher. The engine must already be compiled; the store and
// dispatcher are owned by the caller and survive session restarts.
func New(config Config, engine *pattern.Engine, store baseline.Store, dispatcher *reaction.Dispatcher, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		config:     config,
		engine:     engine,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Matches returns the stream of admitted matches for the current session.
// The channel closes when the session stops.
func (w *Watcher) Matches() <-chan *pattern.Match {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.matches
}

// =============================================================================
// Start
// =============================================================================

// Start initializes a fresh session and begins watching. Configuration
// problems (bad globs, bad grep patterns, missing roots) are fatal here;
// a missing or corrupt baseline is not.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrAlreadyWatching
	}

	if err := w.startSession(ctx); err != nil {
		w.state.Store(int32(StateStopped))
		return err
	}

	w.state.Store(int32(StateWatching))
	return nil
}

// startSession builds and launches all session components.
func (w *Watcher) startSession(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	roots, workDir, err := resolvePaths(w.config.Roots, w.config.WorkDir)
	if err != nil {
		return err
	}

	filter, err := NewFileFilter(w.config.Filter, roots, w.logger)
	if err != nil {
		return err
	}

	greps, err := compileGreps(w.config.GrepPatterns)
	if err != nil {
		return err
	}

	cache, err := newContentCache()
	if err != nil {
		return err
	}

	fsw, err := NewFSWatcher(FSWatcherConfig{
		Roots:       roots,
		IgnoreGlobs: w.config.Filter.IgnoreGlobs,
		Settle:      w.config.Settle,
	})
	if err != nil {
		cache.Close()
		return err
	}

	// Best effort: an absent baseline means everything alerts as new.
	if err := w.store.Load(ctx); err != nil {
		w.logger.Warn("baseline load failed, alerting on everything", "error", err)
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	events, err := fsw.Start(sessionCtx)
	if err != nil {
		cancel()
		cache.Close()
		return err
	}

	w.roots = roots
	w.workDir = workDir
	w.filter = filter
	w.greps = greps
	w.cache = cache
	w.fsw = fsw
	w.gate = debounce.NewGate(w.config.DebounceWindow, w.config.DebounceMaxKeys)
	w.limiter = newLimiter(w.config.RateLimit)
	w.matches = make(chan *pattern.Match, matchBuffer)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(sessionCtx, events)

	return nil
}

// resolvePaths makes roots absolute and resolves the working directory.
func resolvePaths(roots []string, workDir string) ([]string, string, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		workDir = wd
	}

	abs := make([]string, len(roots))
	for i, root := range roots {
		a, err := filepath.Abs(root)
		if err != nil {
			return nil, "", err
		}
		abs[i] = a
	}
	return abs, workDir, nil
}

// compileGreps compiles the content pre-filter patterns.
func compileGreps(patterns []string) ([]*regexp.Regexp, error) {
	greps := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Join(ErrBadGrepPattern, err)
		}
		greps = append(greps, re)
	}
	return greps, nil
}

// newLimiter builds the event rate limiter. Zero or negative means no limit.
func newLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// =============================================================================
// Stop
// =============================================================================

// Stop ends the session: no new events are processed after it returns.
// Reactions already dispatched are not cancelled. The watcher may be
// started again afterwards as a fresh session.
func (w *Watcher) Stop() {
	if !w.state.CompareAndSwap(int32(StateWatching), int32(StateStopped)) {
		return
	}

	w.mu.Lock()
	cancel, fsw := w.cancel, w.fsw
	w.mu.Unlock()

	cancel()
	fsw.Stop()
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	close(w.matches)
	w.gate.Reset()
	w.cache.Close()
}

// =============================================================================
// Event loop
// =============================================================================

// loop drains settled file events until the session ends. Events for
// different paths process concurrently; concurrent events for one path are
// coalesced by the singleflight group.
func (w *Watcher) loop(ctx context.Context, events <-chan *FileEvent) {
	defer w.wg.Done()

	for event := range events {
		if event.Op == OpRemove {
			continue
		}
		if !w.limiter.Allow() {
			w.logger.Debug("event rate limited", "path", event.Path)
			continue
		}

		w.wg.Add(1)
		go w.processPath(ctx, event.Path)
	}
}

// processPath runs the pipeline for one path, deduplicating overlapping
// work on the same file.
func (w *Watcher) processPath(ctx context.Context, path string) {
	defer w.wg.Done()

	_, _, _ = w.flight.Do(path, func() (interface{}, error) {
		w.processFile(ctx, path)
		return nil, nil
	})
}

// =============================================================================
// Pipeline
// =============================================================================

// processFile filters, reads, and matches one file.
func (w *Watcher) processFile(ctx context.Context, path string) {
	if !w.filter.Eligible(w.rootFor(path), path) {
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		// A file that vanished between event and read is business as
		// usual when editors write via rename.
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("file read failed, skipping", "path", path, "error", err)
		}
		return
	}

	// The unchanged-content skip is only safe under baseline diffing,
	// where a re-save of known content is suppressed as known anyway.
	// Without it, an identical save after the debounce window re-opens
	// must reach the gate and be re-admitted.
	if w.config.RecordBaseline && w.cache.Unchanged(path, content) {
		return
	}
	if !w.grepHit(content) {
		return
	}

	w.processLines(ctx, w.relativize(path), string(content))
}

// grepHit applies the content pre-filter. With no patterns configured every
// file passes.
func (w *Watcher) grepHit(content []byte) bool {
	return grepAny(w.greps, content)
}

// processLines runs the engine over every line and pushes admitted matches
// through baseline, debounce, and reactions. New baseline entries are
// persisted once per file pass.
func (w *Watcher) processLines(ctx context.Context, rel, content string) {
	var newEntries []baseline.Entry

	for i, line := range strings.Split(content, "\n") {
		for _, match := range w.engine.MatchLine(rel, i+1, line) {
			if entry, admitted := w.admit(match, line); admitted {
				if w.config.RecordBaseline {
					newEntries = append(newEntries, entry)
				}
				w.dispatcher.Dispatch(ctx, match)
				w.emit(match)
			}
		}
	}

	if len(newEntries) > 0 {
		if err := w.store.Record(ctx, newEntries); err != nil {
			w.logger.Warn("baseline update failed", "error", err)
		}
	}
}

// admit classifies a match against the baseline and the debounce gate.
// Known occurrences are suppressed outright; new ones are NEW-marked and,
// when they pass the gate, returned for recording.
func (w *Watcher) admit(match *pattern.Match, line string) (baseline.Entry, bool) {
	entry := baseline.Entry{
		File:    match.File,
		Line:    match.Line,
		Pattern: match.Pattern,
		Hash:    baseline.HashLine(line),
	}

	if w.config.RecordBaseline {
		if !w.store.IsNew(entry) {
			return entry, false
		}
		match.MarkNew()
	}

	key := debounce.Key{File: match.File, Line: match.Line, Pattern: match.Pattern}
	if !w.gate.Allow(key) {
		return entry, false
	}

	return entry, true
}

// emit delivers a match to the observer stream without ever blocking the
// pipeline.
func (w *Watcher) emit(match *pattern.Match) {
	select {
	case w.matches <- match:
	default:
		w.logger.Warn("match stream full, dropping", "pattern", match.Pattern, "file", match.File)
	}
}

// =============================================================================
// Path helpers
// =============================================================================

// rootFor returns the watch root containing path, or the first root when
// none matches.
func (w *Watcher) rootFor(path string) string {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return w.roots[0]
}

// relativize converts an absolute path to one relative to the session's
// working directory, matching how baseline entries are keyed.
func (w *Watcher) relativize(path string) string {
	rel, err := filepath.Rel(w.workDir, path)
	if err != nil {
		return path
	}
	return rel
}
