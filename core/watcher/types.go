// Package watcher owns the slopwatch processing pipeline: it subscribes to
// recursive filesystem notifications, filters and reads changed files, runs
// each line through the pattern engine, classifies matches against the
// baseline, debounces repeats, and dispatches reactions.
package watcher

import "time"

// =============================================================================
// FileOp
// =============================================================================

// FileOp is the kind of filesystem change observed.
type FileOp int

const (
	// OpCreate indicates a file was created.
	OpCreate FileOp = iota

	// OpModify indicates a file's content changed.
	OpModify

	// OpRemove indicates a file was deleted or renamed away.
	OpRemove
)

// String returns a human-readable name for the operation.
func (op FileOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// =============================================================================
// FileEvent
// =============================================================================

// FileEvent is one settled filesystem change. Raw OS notifications for the
// same path are coalesced during the settle window, so a single logical file
// save produces one FileEvent.
type FileEvent struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the kind of change.
	Op FileOp

	// Time is when the change was last observed.
	Time time.Time
}

// =============================================================================
// State
// =============================================================================

// State is the watch session lifecycle state.
type State int32

const (
	// StateStopped means no session is active.
	StateStopped State = iota

	// StateStarting means Start is initializing the session.
	StateStarting

	// StateWatching means the session is processing events.
	StateWatching
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateWatching:
		return "watching"
	default:
		return "unknown"
	}
}
