package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

// contextRadius is the number of characters kept on each side of a match
// when building the context window.
const contextRadius = 40

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoRules indicates an engine was built without any rules.
	ErrNoRules = errors.New("no rules configured")

	// ErrRuleName indicates a rule is missing its name.
	ErrRuleName = errors.New("rule has no name")

	// ErrRulePattern indicates a rule has an empty or malformed pattern.
	ErrRulePattern = errors.New("invalid rule pattern")

	// ErrRuleSeverity indicates a rule declares an unknown severity.
	ErrRuleSeverity = errors.New("unknown rule severity")

	// ErrRuleReaction indicates a rule declares an unknown reaction kind.
	ErrRuleReaction = errors.New("unknown rule reaction")
)

// =============================================================================
// compiledRule
// =============================================================================

// compiledRule pairs a normalized rule with its compiled expression.
type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// =============================================================================
// Engine
// =============================================================================

// Engine evaluates an ordered rule set against lines of text. Rules are
// evaluated independently and in declaration order; no rule suppresses
// another. An engine is immutable after construction and safe for
// concurrent use.
type Engine struct {
	rules []compiledRule
}

// NewEngine normalizes, validates, and compiles the given rules.
// Any malformed rule is a fatal configuration error reported here,
// before any file processing begins.
func NewEngine(rules []Rule) (*Engine, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		cr, err := compileRule(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, rule.Name, err)
		}
		compiled = append(compiled, cr)
	}

	return &Engine{rules: compiled}, nil
}

// compileRule applies defaults, validates metadata, and compiles the pattern.
func compileRule(rule Rule) (compiledRule, error) {
	rule = Normalize(rule)

	if rule.Name == "" {
		return compiledRule{}, ErrRuleName
	}
	if rule.Pattern == "" {
		return compiledRule{}, ErrRulePattern
	}
	if !rule.Severity.Valid() {
		return compiledRule{}, errors.Join(ErrRuleSeverity, fmt.Errorf("severity %q", rule.Severity))
	}
	for _, reaction := range rule.Reactions {
		if !reaction.Valid() {
			return compiledRule{}, errors.Join(ErrRuleReaction, fmt.Errorf("reaction %q", reaction))
		}
	}

	re, err := regexp.Compile("(?im)" + rule.Pattern)
	if err != nil {
		return compiledRule{}, errors.Join(ErrRulePattern, err)
	}

	return compiledRule{rule: rule, re: re}, nil
}

// Normalize returns the rule with load-time defaults applied: medium
// severity, the [alert] reaction list, and a message derived from the name.
func Normalize(rule Rule) Rule {
	if rule.Severity == "" {
		rule.Severity = SeverityMedium
	}
	if len(rule.Reactions) == 0 {
		rule.Reactions = []Reaction{ReactionAlert}
	}
	if rule.Message == "" {
		rule.Message = defaultMessage(rule.Name)
	}
	return rule
}

// defaultMessage derives a human-readable notice from a rule name.
func defaultMessage(name string) string {
	text := strings.ReplaceAll(name, "-", " ")
	text = strings.ReplaceAll(text, "_", " ")
	return fmt.Sprintf("detected %s", text)
}

// Rules returns the normalized rules in declaration order.
func (e *Engine) Rules() []Rule {
	rules := make([]Rule, len(e.rules))
	for i, cr := range e.rules {
		rules[i] = cr.rule
	}
	return rules
}

// =============================================================================
// Matching
// =============================================================================

// MatchLine evaluates every rule against one line of text and returns one
// match per rule per non-overlapping occurrence. All occurrences are
// reported, not just the first.
func (e *Engine) MatchLine(file string, lineNo int, line string) []*Match {
	var matches []*Match

	for _, cr := range e.rules {
		matches = append(matches, cr.matchAll(file, lineNo, line)...)
	}

	return matches
}

// matchAll returns a match for every non-overlapping occurrence of one rule.
func (cr *compiledRule) matchAll(file string, lineNo int, line string) []*Match {
	locations := cr.re.FindAllStringIndex(line, -1)
	if locations == nil {
		return nil
	}

	matches := make([]*Match, 0, len(locations))
	for _, loc := range locations {
		matches = append(matches, cr.buildMatch(file, lineNo, line, loc[0], loc[1]))
	}
	return matches
}

// buildMatch constructs the match record for one occurrence.
func (cr *compiledRule) buildMatch(file string, lineNo int, line string, start, end int) *Match {
	return &Match{
		ID:               uuid.NewString(),
		Pattern:          cr.rule.Name,
		Severity:         cr.rule.Severity,
		Text:             line[start:end],
		Offset:           utf8.RuneCountInString(line[:start]),
		Reactions:        cr.rule.Reactions,
		Message:          cr.rule.Message,
		InterruptMessage: cr.rule.InterruptMessage,
		File:             file,
		Line:             lineNo,
		Context:          contextWindow(line, start, end),
		LineText:         strings.TrimSpace(line),
		Time:             time.Now(),
	}
}

// contextWindow extracts a fixed-width window of text around a match. The
// radius counts characters, not bytes, so the window never splits a rune.
func contextWindow(line string, start, end int) string {
	lo := start
	for i := 0; i < contextRadius && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(line[:lo])
		lo -= size
	}

	hi := end
	for i := 0; i < contextRadius && hi < len(line); i++ {
		_, size := utf8.DecodeRuneInString(line[hi:])
		hi += size
	}

	return strings.TrimSpace(line[lo:hi])
}
