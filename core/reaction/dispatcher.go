// Package reaction fans matches out to configured side effects: alert
// printing, sound playback, keystroke interruption, and webhooks. Handlers
// are best-effort; no handler failure may abort processing of subsequent
// matches or files.
package reaction

import (
	"context"
	"log/slog"

	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// Handler
// =============================================================================

// Handler executes one reaction kind for a match.
type Handler interface {
	// Kind returns the reaction this handler implements.
	Kind() pattern.Reaction

	// Handle runs the reaction. Implementations doing slow work (external
	// processes, network) must not block: fire and forget, report failures
	// through their own logging.
	Handle(ctx context.Context, match *pattern.Match) error
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher routes a match's reaction list to registered handlers.
// A reaction kind may be globally disabled regardless of per-rule opt-in.
type Dispatcher struct {
	handlers map[pattern.Reaction]Handler
	disabled map[pattern.Reaction]bool
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher with no handlers registered.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[pattern.Reaction]Handler),
		disabled: make(map[pattern.Reaction]bool),
		logger:   logger,
	}
}

// Register installs a handler for its reaction kind, replacing any previous
// handler for the same kind.
func (d *Dispatcher) Register(handler Handler) {
	d.handlers[handler.Kind()] = handler
}

// SetEnabled globally enables or disables one reaction kind.
func (d *Dispatcher) SetEnabled(kind pattern.Reaction, enabled bool) {
	d.disabled[kind] = !enabled
}

// Dispatch runs the match's reactions in their declared order. Missing
// handlers and disabled kinds are skipped; handler errors are logged and
// swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, match *pattern.Match) {
	for _, kind := range match.Reactions {
		d.dispatchOne(ctx, kind, match)
	}
}

// dispatchOne runs a single reaction for a match.
func (d *Dispatcher) dispatchOne(ctx context.Context, kind pattern.Reaction, match *pattern.Match) {
	if d.disabled[kind] {
		return
	}

	handler, ok := d.handlers[kind]
	if !ok {
		return
	}

	if err := handler.Handle(ctx, match); err != nil {
		d.logger.Warn("reaction failed",
			"reaction", string(kind),
			"pattern", match.Pattern,
			"file", match.File,
			"error", err)
	}
}
