package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultSettle is how long raw OS events for one path are allowed to settle
// before a FileEvent is emitted. Editors typically fire several notifications
// per save; the settle window folds them into one.
const DefaultSettle = 100 * time.Millisecond

// eventBuffer is the capacity of the emitted event channel.
const eventBuffer = 256

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoRoots indicates no watch directories were specified.
	ErrNoRoots = errors.New("no watch directories configured")

	// ErrRootNotExist indicates a watch directory does not exist.
	ErrRootNotExist = errors.New("watch directory does not exist")

	// ErrRootNotDirectory indicates a watch root is not a directory.
	ErrRootNotDirectory = errors.New("watch root is not a directory")

	// ErrBadIgnorePattern indicates an ignore glob could not be compiled.
	ErrBadIgnorePattern = errors.New("invalid ignore pattern")
)

// =============================================================================
// FSWatcherConfig
// =============================================================================

// FSWatcherConfig configures the low-level filesystem watcher.
type FSWatcherConfig struct {
	// Roots are the directories to watch recursively.
	Roots []string

	// IgnoreGlobs are path patterns whose directories are never watched.
	IgnoreGlobs []string

	// Settle is the per-path event coalescing window.
	Settle time.Duration
}

// =============================================================================
// FSWatcher
// =============================================================================

// pendingEvent is a coalesced change waiting out its settle window.
type pendingEvent struct {
	event *FileEvent
	timer *time.Timer
}

// FSWatcher wraps fsnotify with recursive directory watching, ignore-glob
// pruning, and per-path settle timers.
type FSWatcher struct {
	config  FSWatcherConfig
	watcher *fsnotify.Watcher
	ignores []glob.Glob

	mu      sync.Mutex
	pending map[string]*pendingEvent
	events  chan *FileEvent
	stopped bool

	stopOnce sync.Once
}

// NewFSWatcher validates the configuration and creates a watcher.
func NewFSWatcher(config FSWatcherConfig) (*FSWatcher, error) {
	if err := validateRoots(config.Roots); err != nil {
		return nil, err
	}
	if config.Settle <= 0 {
		config.Settle = DefaultSettle
	}

	ignores, err := compileIgnoreGlobs(config.IgnoreGlobs)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FSWatcher{
		config:  config,
		watcher: fsw,
		ignores: ignores,
		pending: make(map[string]*pendingEvent),
		events:  make(chan *FileEvent, eventBuffer),
	}, nil
}

// validateRoots checks that every root exists and is a directory.
func validateRoots(roots []string) error {
	if len(roots) == 0 {
		return ErrNoRoots
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if os.IsNotExist(err) {
			return errors.Join(ErrRootNotExist, errors.New(root))
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return errors.Join(ErrRootNotDirectory, errors.New(root))
		}
	}
	return nil
}

// compileIgnoreGlobs compiles the ignore patterns.
func compileIgnoreGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(ErrBadIgnorePattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// =============================================================================
// Start
// =============================================================================

// Start attaches watches to every root tree and begins emitting settled
// events. The returned channel closes when the context is cancelled or Stop
// is called.
func (w *FSWatcher) Start(ctx context.Context) (<-chan *FileEvent, error) {
	for _, root := range w.config.Roots {
		if err := w.watchTree(root); err != nil {
			w.watcher.Close()
			return nil, err
		}
	}

	go w.run(ctx)

	return w.events, nil
}

// watchTree attaches a watch to a directory and all its subdirectories,
// pruning ignored ones.
func (w *FSWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Unreadable subtree; skip it.
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// ignored checks a path against the ignore globs. Patterns match the full
// path, the base name, or any path component.
func (w *FSWatcher) ignored(path string) bool {
	for _, g := range w.ignores {
		if globMatchesPath(g, path) {
			return true
		}
	}
	return false
}

// globMatchesPath matches a glob against a path, its base, and each of its
// components, so a bare directory name like "node_modules" excludes the
// whole subtree.
func globMatchesPath(g glob.Glob, path string) bool {
	if g.Match(path) || g.Match(filepath.Base(path)) {
		return true
	}
	for _, part := range splitPathComponents(path) {
		if g.Match(part) {
			return true
		}
	}
	return false
}

// splitPathComponents breaks a path into its individual components.
func splitPathComponents(path string) []string {
	var parts []string
	for path != "" && path != "/" && path != "." {
		dir, file := filepath.Split(path)
		if file != "" {
			parts = append(parts, file)
		}
		path = filepath.Clean(dir)
		if path == dir { // no progress; e.g. windows volume root
			break
		}
	}
	return parts
}

// =============================================================================
// Event loop
// =============================================================================

// run consumes raw fsnotify events until stopped.
func (w *FSWatcher) run(ctx context.Context) {
	defer w.closeEvents()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleRawEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// handleRawEvent filters and schedules one fsnotify event.
func (w *FSWatcher) handleRawEvent(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}

	// Chmod carries no content change; emitting it would only cause
	// redundant reads.
	if event.Op == fsnotify.Chmod {
		return
	}

	if event.Has(fsnotify.Create) {
		if w.maybeWatchNewDirectory(event.Name) {
			return
		}
	}

	w.schedule(event.Name, mapOp(event.Op))
}

// maybeWatchNewDirectory extends the watch into newly created directories.
// Returns true when the path is a directory.
func (w *FSWatcher) maybeWatchNewDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_ = w.watchTree(path)
	return true
}

// mapOp converts an fsnotify operation to a FileOp.
func mapOp(op fsnotify.Op) FileOp {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove
	default:
		return OpModify
	}
}

// =============================================================================
// Settling
// =============================================================================

// schedule arms (or re-arms) the settle timer for a path. Writers that are
// still flushing keep pushing the emission back, so the eventual read sees
// complete content.
func (w *FSWatcher) schedule(path string, op FileOp) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	event := &FileEvent{Path: path, Op: op, Time: time.Now()}

	if existing, ok := w.pending[path]; ok {
		existing.event = event
		existing.timer.Reset(w.config.Settle)
		return
	}

	w.pending[path] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(w.config.Settle, func() { w.emit(path) }),
	}
}

// emit delivers a settled event and clears its pending slot.
func (w *FSWatcher) emit(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	pending, ok := w.pending[path]
	if !ok {
		return
	}
	delete(w.pending, path)

	select {
	case w.events <- pending.event:
	default:
		// Consumer is behind; drop rather than block the timer goroutine.
	}
}

// =============================================================================
// Stop
// =============================================================================

// Stop detaches all watches and cancels pending settle timers. Safe to call
// more than once.
func (w *FSWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = make(map[string]*pendingEvent)
		w.mu.Unlock()

		w.watcher.Close()
	})
}

// closeEvents marks the watcher stopped and closes the event channel.
func (w *FSWatcher) closeEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.stopped {
		w.stopped = true
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = make(map[string]*pendingEvent)
		w.watcher.Close()
	}
	close(w.events)
}
