// Package policy evaluates candidate passwords against the competition's
// four-rule strength policy.
//
// Evaluation is a pure function of its input: no logging, no I/O and no
// hidden state, so it is safe to call on every keystroke.
package policy

import (
	"strings"
	"unicode/utf16"
)

// MinLength is the minimum number of UTF-16 code units an acceptable password has
const MinLength = 12

// SpecialCharacters is the fixed set that satisfies RuleSpecial
const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

// Rule identifies one of the four strength rules
type Rule int

const (
	RuleLength Rule = iota
	RuleUppercase
	RuleDigit
	RuleSpecial
)

// Rules lists every rule in evaluation and display order
var Rules = []Rule{RuleLength, RuleUppercase, RuleDigit, RuleSpecial}

// String returns the rule's stable identifier
func (r Rule) String() string {
	switch r {
	case RuleLength:
		return "length"
	case RuleUppercase:
		return "uppercase"
	case RuleDigit:
		return "digit"
	case RuleSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Description returns the requirement text shown to users
func (r Rule) Description() string {
	switch r {
	case RuleLength:
		return "At least 12 characters"
	case RuleUppercase:
		return "At least 1 uppercase letter"
	case RuleDigit:
		return "At least 1 number"
	case RuleSpecial:
		return "At least 1 special character"
	default:
		return ""
	}
}

// RuleSet records which rules passed
type RuleSet struct {
	Length    bool
	Uppercase bool
	Digit     bool
	Special   bool
}

// Has reports whether rule r is in the set
func (s RuleSet) Has(r Rule) bool {
	switch r {
	case RuleLength:
		return s.Length
	case RuleUppercase:
		return s.Uppercase
	case RuleDigit:
		return s.Digit
	case RuleSpecial:
		return s.Special
	default:
		return false
	}
}

// Count returns the number of satisfied rules
func (s RuleSet) Count() int {
	n := 0
	for _, r := range Rules {
		if s.Has(r) {
			n++
		}
	}
	return n
}

// Category is the coarse strength label derived from the score
type Category string

const (
	Weak     Category = "Weak"
	Moderate Category = "Moderate"
	Strong   Category = "Strong"
)

// CategoryFor maps a score to its category.
// Scores 0 and 1 are Weak, 2 and 3 Moderate, 4 Strong.
func CategoryFor(score int) Category {
	switch {
	case score < 2:
		return Weak
	case score < 4:
		return Moderate
	default:
		return Strong
	}
}

// Result is the outcome of evaluating one candidate
type Result struct {
	Score      int
	Category   Category
	Satisfied  RuleSet
	Acceptable bool // true iff Score == len(Rules)
}

// Missing returns the unsatisfied rules in display order
func (r Result) Missing() []Rule {
	var missing []Rule
	for _, rule := range Rules {
		if !r.Satisfied.Has(rule) {
			missing = append(missing, rule)
		}
	}
	return missing
}

// Evaluate scores candidate against all four rules.
// Any string is accepted; the empty string fails every rule.
func Evaluate(candidate string) Result {
	satisfied := RuleSet{
		Length:    Length(candidate) >= MinLength,
		Uppercase: strings.IndexFunc(candidate, isUpper) >= 0,
		Digit:     strings.IndexFunc(candidate, isDigit) >= 0,
		Special:   strings.ContainsAny(candidate, SpecialCharacters),
	}

	score := satisfied.Count()
	return Result{
		Score:      score,
		Category:   CategoryFor(score),
		Satisfied:  satisfied,
		Acceptable: score == len(Rules),
	}
}

// Length counts UTF-16 code units so lengths agree with browser clients
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Observer is told about evaluations made for live feedback
type Observer interface {
	ObserveEvaluation(result Result)
}
