package config

import "github.com/davenhart/slopwatch/core/pattern"

// DefaultRules returns the stock rule set covering the usual low-effort
// assistant output: placeholder comments, stub markers, and suppressed
// errors. Matching is case-insensitive.
func DefaultRules() []pattern.Rule {
	return []pattern.Rule{
		{
			Name:      "placeholder-comment",
			Pattern:   `placeholder (implementation|for|code|logic|value)`,
			Severity:  pattern.SeverityHigh,
			Reactions: []pattern.Reaction{pattern.ReactionAlert, pattern.ReactionSound},
			Message:   "placeholder left in code",
		},
		{
			Name:             "real-implementation",
			Pattern:          `in a (real|production|full) (implementation|app|application|system)`,
			Severity:         pattern.SeverityHigh,
			Reactions:        []pattern.Reaction{pattern.ReactionAlert, pattern.ReactionSound},
			Message:          "hand-waved implementation",
			InterruptMessage: "STOP: you wrote 'in a real implementation' instead of implementing it.",
		},
		{
			Name:      "rest-unchanged",
			Pattern:   `(\.\.\.\s*)?rest of (the )?(code|file|function|class|method)( (remains|stays) (unchanged|the same))?`,
			Severity:  pattern.SeverityHigh,
			Reactions: []pattern.Reaction{pattern.ReactionAlert, pattern.ReactionSound},
			Message:   "elided code body",
		},
		{
			Name:     "logic-goes-here",
			Pattern:  `(logic|implementation|code|handling) (would )?(go|goes) here`,
			Severity: pattern.SeverityHigh,
			Message:  "stubbed-out logic",
		},
		{
			Name:     "not-implemented",
			Pattern:  `not (yet )?implemented|unimplemented`,
			Severity: pattern.SeverityMedium,
			Message:  "unimplemented path",
		},
		{
			Name:     "simplified-version",
			Pattern:  `simplified (version|for)|for (brevity|simplicity)`,
			Severity: pattern.SeverityMedium,
			Message:  "simplified stand-in",
		},
		{
			Name:     "mock-stand-in",
			Pattern:  `(mock|dummy|fake|sample) (data|implementation|response|values?)`,
			Severity: pattern.SeverityMedium,
			Message:  "mock stand-in outside tests",
		},
		{
			Name:     "empty-catch",
			Pattern:  `catch\s*(\([^)]*\))?\s*\{\s*\}`,
			Severity: pattern.SeverityHigh,
			Message:  "swallowed exception",
		},
		{
			Name:     "bare-except-pass",
			Pattern:  `except\s*(\w+\s*)?:\s*pass\b`,
			Severity: pattern.SeverityHigh,
			Message:  "swallowed exception",
		},
		{
			Name:     "ts-suppression",
			Pattern:  `@ts-(ignore|nocheck|expect-error)`,
			Severity: pattern.SeverityMedium,
			Message:  "type checking suppressed",
		},
		{
			Name:     "lint-suppression",
			Pattern:  `eslint-disable|nolint(:\w+)?`,
			Severity: pattern.SeverityLow,
			Message:  "lint suppressed",
		},
		{
			Name:     "todo-marker",
			Pattern:  `\b(TODO|FIXME|HACK)\b`,
			Severity: pattern.SeverityLow,
			Message:  "unfinished work marker",
		},
	}
}
