package reaction

import (
	"context"
	"log/slog"

	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// SoundHandler
// =============================================================================

// SoundHandler plays a platform-specific audio cue. Playback is fire and
// forget: the handler returns immediately and failures are only logged, so
// a hung or missing audio player never stalls the event loop.
type SoundHandler struct {
	commander Commander
	command   []string
	fallback  []string
	logger    *slog.Logger
}

// NewSoundHandler creates a sound handler using the host platform's audio
// command. A non-empty command overrides the platform default and disables
// the fallback player.
func NewSoundHandler(commander Commander, command []string, logger *slog.Logger) *SoundHandler {
	if logger == nil {
		logger = slog.Default()
	}
	var fallback []string
	if len(command) == 0 {
		host := hostCommands()
		command = host.sound
		fallback = host.soundFallback
	}
	return &SoundHandler{
		commander: commander,
		command:   command,
		fallback:  fallback,
		logger:    logger,
	}
}

// Kind returns pattern.ReactionSound.
func (h *SoundHandler) Kind() pattern.Reaction {
	return pattern.ReactionSound
}

// Handle starts playback asynchronously and returns immediately.
func (h *SoundHandler) Handle(ctx context.Context, match *pattern.Match) error {
	go h.play(context.WithoutCancel(ctx))
	return nil
}

// play runs the audio command, trying the fallback player when the primary
// one fails, and logs any failure.
func (h *SoundHandler) play(ctx context.Context) {
	err := h.commander.Run(ctx, h.command[0], h.command[1:]...)
	if err != nil && len(h.fallback) > 0 {
		err = h.commander.Run(ctx, h.fallback[0], h.fallback[1:]...)
	}
	if err != nil {
		h.logger.Warn("sound playback failed", "command", h.command[0], "error", err)
	}
}
