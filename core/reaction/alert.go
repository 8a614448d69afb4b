package reaction

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// AlertHandler
// =============================================================================

// AlertHandler writes a formatted notice for each match to an observer
// stream. It is synchronous and never fails the pipeline: write errors are
// swallowed since there is nowhere useful to report them.
type AlertHandler struct {
	mu  sync.Mutex
	out io.Writer
}

// NewAlertHandler creates an alert handler writing to out.
func NewAlertHandler(out io.Writer) *AlertHandler {
	return &AlertHandler{out: out}
}

// Kind returns pattern.ReactionAlert.
func (h *AlertHandler) Kind() pattern.Reaction {
	return pattern.ReactionAlert
}

// Handle writes the formatted notice.
func (h *AlertHandler) Handle(ctx context.Context, match *pattern.Match) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintln(h.out, FormatNotice(match))
	return nil
}

// FormatNotice renders the single-line notice for a match.
func FormatNotice(match *pattern.Match) string {
	return fmt.Sprintf("[%s] %s  %s:%d  (%s) %q",
		strings.ToUpper(string(match.Severity)),
		match.Message,
		match.File,
		match.Line,
		match.Pattern,
		match.LineText)
}
