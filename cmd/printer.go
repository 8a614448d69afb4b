package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/davenhart/slopwatch/core/pattern"
)

// =============================================================================
// Terminal printers
// =============================================================================

var severityColors = map[pattern.Severity]*color.Color{
	pattern.SeverityHigh:   color.New(color.FgRed, color.Bold),
	pattern.SeverityMedium: color.New(color.FgYellow),
	pattern.SeverityLow:    color.New(color.FgCyan),
}

// colorAlertHandler is the terminal alert handler. It renders one line per
// match with the severity tag colored by level.
type colorAlertHandler struct {
	mu  sync.Mutex
	out io.Writer
}

func newColorAlertHandler(out io.Writer) *colorAlertHandler {
	return &colorAlertHandler{out: out}
}

func (h *colorAlertHandler) Kind() pattern.Reaction {
	return pattern.ReactionAlert
}

func (h *colorAlertHandler) Handle(ctx context.Context, match *pattern.Match) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintln(h.out, formatMatchLine(match))
	return nil
}

// formatMatchLine renders a single colored notice line for a match.
func formatMatchLine(match *pattern.Match) string {
	tag := fmt.Sprintf("[%s]", strings.ToUpper(string(match.Severity)))
	if c, ok := severityColors[match.Severity]; ok {
		tag = c.Sprint(tag)
	}

	return fmt.Sprintf("%s %s  %s:%d  (%s) %q",
		tag,
		match.Message,
		match.File,
		match.Line,
		match.Pattern,
		match.LineText)
}

// printRules lists the effective rule set, one rule per line, with the
// severity tag colored the same way match notices are.
func printRules(out io.Writer, rules []pattern.Rule, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, rule := range rules {
			if err := enc.Encode(rule); err != nil {
				return err
			}
		}
		return nil
	}

	for _, rule := range rules {
		tag := fmt.Sprintf("[%s]", strings.ToUpper(string(rule.Severity)))
		if c, ok := severityColors[rule.Severity]; ok {
			tag = c.Sprint(tag)
		}
		if _, err := fmt.Fprintf(out, "%s %-24s %v  %s\n", tag, rule.Name, rule.Reactions, rule.Pattern); err != nil {
			return err
		}
	}
	return nil
}

// jsonPrinter writes one JSON object per match, one per line.
type jsonPrinter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONPrinter(out io.Writer) *jsonPrinter {
	return &jsonPrinter{enc: json.NewEncoder(out)}
}

func (p *jsonPrinter) Print(match *pattern.Match) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.enc.Encode(match)
}
