// Package pattern provides the rule and match types for the Slopwatch
// detection engine. A rule is a named regular expression plus reaction
// metadata; a match is one occurrence of a rule on one line of a file.
package pattern

import "time"

// =============================================================================
// Severity
// =============================================================================

// Severity classifies how serious a rule violation is.
type Severity string

const (
	// SeverityHigh marks violations that should never ship.
	SeverityHigh Severity = "high"

	// SeverityMedium is the default severity for rules that do not set one.
	SeverityMedium Severity = "medium"

	// SeverityLow marks advisory violations.
	SeverityLow Severity = "low"
)

// Valid reports whether the severity is one of the known levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// =============================================================================
// Reaction
// =============================================================================

// Reaction names a configured side effect triggered when a rule matches.
type Reaction string

const (
	// ReactionAlert writes a formatted notice to the observer stream.
	ReactionAlert Reaction = "alert"

	// ReactionSound plays a platform-specific audio cue.
	ReactionSound Reaction = "sound"

	// ReactionInterrupt injects a warning into the focused window.
	ReactionInterrupt Reaction = "interrupt"

	// ReactionWebhook posts the match to an external URL.
	ReactionWebhook Reaction = "webhook"
)

// Valid reports whether the reaction is one of the known kinds.
func (r Reaction) Valid() bool {
	switch r {
	case ReactionAlert, ReactionSound, ReactionInterrupt, ReactionWebhook:
		return true
	default:
		return false
	}
}

// =============================================================================
// Rule
// =============================================================================

// Rule describes one anti-pattern to detect. Rules are immutable once loaded;
// defaults for unset fields are applied at load time, not at match time.
type Rule struct {
	// Name uniquely identifies the rule within one configuration.
	Name string `yaml:"name" json:"name"`

	// Pattern is the regular expression source. Matching is always
	// case-insensitive regardless of flags in the source.
	Pattern string `yaml:"pattern" json:"pattern"`

	// Severity defaults to medium when empty.
	Severity Severity `yaml:"severity,omitempty" json:"severity,omitempty"`

	// Reactions defaults to [alert] when empty. Order is execution order.
	Reactions []Reaction `yaml:"reactions,omitempty" json:"reactions,omitempty"`

	// Message overrides the default notice text derived from Name.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`

	// InterruptMessage is the text injected by the interrupt reaction.
	InterruptMessage string `yaml:"interrupt_message,omitempty" json:"interrupt_message,omitempty"`
}

// =============================================================================
// Match
// =============================================================================

// Match is one occurrence of a rule on one line. Matches are ephemeral:
// constructed, dispatched to reactions, then discarded. Only the derived
// baseline entry outlives them.
type Match struct {
	// ID uniquely identifies this match event.
	ID string `json:"id"`

	// Pattern is the name of the rule that matched.
	Pattern string `json:"pattern"`

	// Severity is the rule's severity.
	Severity Severity `json:"severity"`

	// Text is the matched substring.
	Text string `json:"text"`

	// Offset is the character offset of the match within the line,
	// counted in runes rather than bytes.
	Offset int `json:"offset"`

	// Reactions are the side effects to run, in order.
	Reactions []Reaction `json:"reactions"`

	// Message is the resolved notice text. It carries a "NEW" prefix when
	// the occurrence was not present in the baseline.
	Message string `json:"message"`

	// InterruptMessage is the text used by the interrupt reaction.
	InterruptMessage string `json:"interrupt_message,omitempty"`

	// File is the path of the matched file, relative to the watch root.
	File string `json:"file"`

	// Line is the 1-based line number.
	Line int `json:"line"`

	// Context is a fixed-width window of line text around the match.
	Context string `json:"context"`

	// LineText is the full line, trimmed of surrounding whitespace.
	LineText string `json:"line_text"`

	// IsNew reports whether the occurrence was absent from the baseline.
	IsNew bool `json:"is_new"`

	// Time is when the match was captured.
	Time time.Time `json:"time"`
}

// newPrefix is prepended to the message of first-time occurrences.
const newPrefix = "NEW: "

// MarkNew flags the match as a first-time baseline occurrence and prefixes
// its message accordingly. Calling it twice does not stack prefixes.
func (m *Match) MarkNew() {
	if m.IsNew {
		return
	}
	m.IsNew = true
	m.Message = newPrefix + m.Message
}
