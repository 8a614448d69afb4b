package reaction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// PermissionProbe
// =============================================================================

// PermissionProbe checks once whether keystroke injection is permitted on
// this host (macOS requires accessibility permission for the invoking
// terminal; X11 needs xdotool installed). The result is cached for the
// probe's lifetime. Callers construct and own their probe explicitly; there
// is no process-wide singleton.
type PermissionProbe struct {
	commander Commander
	command   []string

	once    sync.Once
	granted bool
}

// NewPermissionProbe creates a probe using the host platform's check.
func NewPermissionProbe(commander Commander) *PermissionProbe {
	return &PermissionProbe{
		commander: commander,
		command:   hostCommands().probe,
	}
}

// Granted reports whether keystroke injection may be attempted.
func (p *PermissionProbe) Granted(ctx context.Context) bool {
	p.once.Do(func() {
		if len(p.command) == 0 {
			p.granted = true
			return
		}
		p.granted = p.commander.Run(ctx, p.command[0], p.command[1:]...) == nil
	})
	return p.granted
}

// =============================================================================
// InterruptHandler
// =============================================================================

// InterruptHandler delivers a textual warning to whatever window currently
// has input focus via OS automation. It fails closed: when permission is
// absent or the automation call errors, it falls back to a passive desktop
// notification instead.
type InterruptHandler struct {
	commander Commander
	probe     *PermissionProbe
	commands  platformCommands
	logger    *slog.Logger
}

// NewInterruptHandler creates an interrupt handler for the host platform.
func NewInterruptHandler(commander Commander, probe *PermissionProbe, logger *slog.Logger) *InterruptHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterruptHandler{
		commander: commander,
		probe:     probe,
		commands:  hostCommands(),
		logger:    logger,
	}
}

// Kind returns pattern.ReactionInterrupt.
func (h *InterruptHandler) Kind() pattern.Reaction {
	return pattern.ReactionInterrupt
}

// Handle injects the warning asynchronously, falling back to a notification
// when injection is unavailable.
func (h *InterruptHandler) Handle(ctx context.Context, match *pattern.Match) error {
	text := interruptText(match)

	go h.deliver(context.WithoutCancel(ctx), match, text)
	return nil
}

// deliver attempts keystroke injection, then the passive fallback.
func (h *InterruptHandler) deliver(ctx context.Context, match *pattern.Match, text string) {
	if !h.probe.Granted(ctx) {
		h.logger.Info("keystroke injection not permitted, sending notification instead",
			"pattern", match.Pattern)
		h.notify(ctx, match, text)
		return
	}

	cmd := h.commands.inject(text)
	if err := h.commander.Run(ctx, cmd[0], cmd[1:]...); err != nil {
		h.logger.Warn("keystroke injection failed, sending notification instead",
			"pattern", match.Pattern, "error", err)
		h.notify(ctx, match, text)
	}
}

// notify sends the passive desktop notification fallback.
func (h *InterruptHandler) notify(ctx context.Context, match *pattern.Match, text string) {
	cmd := h.commands.notify("slopwatch", text)
	if err := h.commander.Run(ctx, cmd[0], cmd[1:]...); err != nil {
		h.logger.Warn("desktop notification failed", "pattern", match.Pattern, "error", err)
	}
}

// interruptText resolves the warning text for a match.
func interruptText(match *pattern.Match) string {
	if match.InterruptMessage != "" {
		return match.InterruptMessage
	}
	return fmt.Sprintf("%s (%s:%d)", match.Message, match.File, match.Line)
}
