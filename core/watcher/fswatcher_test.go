package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// Test Helpers
// =============================================================================

// writeTestFile creates or overwrites a file, creating parent directories.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// collectFileEvents drains events until the timeout elapses.
func collectFileEvents(ch <-chan *FileEvent, timeout time.Duration) []*FileEvent {
	var events []*FileEvent
	deadline := time.After(timeout)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, event)
		case <-deadline:
			return events
		}
	}
}

// startFSWatcher builds and starts a watcher over dir.
func startFSWatcher(t *testing.T, dir string, ignore ...string) (*FSWatcher, <-chan *FileEvent) {
	t.Helper()
	fsw, err := NewFSWatcher(FSWatcherConfig{
		Roots:       []string{dir},
		IgnoreGlobs: ignore,
		Settle:      50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewFSWatcher: %v", err)
	}
	events, err := fsw.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(fsw.Stop)
	return fsw, events
}

// =============================================================================
// Validation
// =============================================================================

func TestNewFSWatcherNoRoots(t *testing.T) {
	if _, err := NewFSWatcher(FSWatcherConfig{}); err != ErrNoRoots {
		t.Errorf("expected ErrNoRoots, got %v", err)
	}
}

func TestNewFSWatcherMissingRoot(t *testing.T) {
	_, err := NewFSWatcher(FSWatcherConfig{Roots: []string{"/does/not/exist"}})
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestNewFSWatcherBadIgnoreGlob(t *testing.T) {
	_, err := NewFSWatcher(FSWatcherConfig{
		Roots:       []string{t.TempDir()},
		IgnoreGlobs: []string{"[unterminated"},
	})
	if err == nil {
		t.Error("expected error for bad ignore glob")
	}
}

// =============================================================================
// Events
// =============================================================================

func TestFSWatcherCoalescesOneSave(t *testing.T) {
	dir := t.TempDir()
	_, events := startFSWatcher(t, dir)

	// An editor save typically produces several raw notifications in
	// quick succession; they must settle into one event.
	path := writeTestFile(t, dir, "app.ts", "one")
	writeTestFile(t, dir, "app.ts", "two")
	writeTestFile(t, dir, "app.ts", "three")

	got := collectFileEvents(events, 500*time.Millisecond)
	count := 0
	for _, e := range got {
		if e.Path == path {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d events for one logical save burst, want 1", count)
	}
}

func TestFSWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	_, events := startFSWatcher(t, dir)

	sub := filepath.Join(dir, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher a moment to attach to the new directory.
	time.Sleep(100 * time.Millisecond)
	path := writeTestFile(t, dir, filepath.Join("pkg", "file.ts"), "hello")

	got := collectFileEvents(events, 500*time.Millisecond)
	for _, e := range got {
		if e.Path == path {
			return
		}
	}
	t.Errorf("no event for file in new directory, got %d events", len(got))
}

func TestFSWatcherIgnoresExcludedSubtrees(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, filepath.Join("node_modules", "seed.ts"), "x")
	_, events := startFSWatcher(t, dir, "node_modules")

	writeTestFile(t, dir, filepath.Join("node_modules", "pkg", "file.ts"), "TODO")

	got := collectFileEvents(events, 400*time.Millisecond)
	for _, e := range got {
		if filepath.Base(e.Path) == "file.ts" {
			t.Errorf("event leaked from ignored subtree: %s", e.Path)
		}
	}
}

func TestFSWatcherStopClosesChannel(t *testing.T) {
	dir := t.TempDir()
	fsw, events := startFSWatcher(t, dir)

	fsw.Stop()

	select {
	case _, ok := <-events:
		if ok {
			// Drain: a buffered event may precede the close.
			for range events {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event channel did not close after Stop")
	}
}

// =============================================================================
// Glob matching
// =============================================================================

func TestGlobMatchesPathComponents(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"node_modules", "node_modules/pkg/file.ts", true},
		{"node_modules", "src/node_modules/file.ts", true},
		{"node_modules", "src/app.ts", false},
		{"*.log", "logs/app.log", true},
		{"dist", "src/distributed.go", false},
	}

	for _, tt := range tests {
		globs, err := compileIgnoreGlobs([]string{tt.pattern})
		if err != nil {
			t.Fatalf("compile %q: %v", tt.pattern, err)
		}
		if got := globMatchesPath(globs[0], tt.path); got != tt.want {
			t.Errorf("pattern %q vs %q: got %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}
