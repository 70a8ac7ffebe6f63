package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateEmptyString(t *testing.T) {
	r := Evaluate("")

	assert.Equal(t, 0, r.Score)
	assert.Equal(t, Weak, r.Category)
	assert.False(t, r.Acceptable)
	assert.Equal(t, Rules, r.Missing())
}

func TestEvaluateStrongPassword(t *testing.T) {
	r := Evaluate("Str0ngP@ssword!")

	assert.Equal(t, 4, r.Score)
	assert.Equal(t, Strong, r.Category)
	assert.True(t, r.Acceptable)
	assert.Empty(t, r.Missing())
}

func TestEvaluateAllRuleCombinations(t *testing.T) {
	// Building blocks that each satisfy exactly one rule and nothing else
	const (
		upper   = "A"
		digit   = "1"
		special = "!"
		filler  = "abcdefghijkl" // 12 lowercase letters
	)

	for mask := 0; mask < 16; mask++ {
		wantLength := mask&1 != 0
		wantUpper := mask&2 != 0
		wantDigit := mask&4 != 0
		wantSpecial := mask&8 != 0

		var b strings.Builder
		if wantUpper {
			b.WriteString(upper)
		}
		if wantDigit {
			b.WriteString(digit)
		}
		if wantSpecial {
			b.WriteString(special)
		}
		if wantLength {
			b.WriteString(filler)
		} else {
			b.WriteString("ab")
		}
		candidate := b.String()

		expectedScore := 0
		for _, ok := range []bool{wantLength, wantUpper, wantDigit, wantSpecial} {
			if ok {
				expectedScore++
			}
		}

		r := Evaluate(candidate)
		assert.Equal(t, RuleSet{wantLength, wantUpper, wantDigit, wantSpecial}, r.Satisfied, "candidate %q", candidate)
		assert.Equal(t, expectedScore, r.Score, "candidate %q", candidate)
		assert.Equal(t, CategoryFor(expectedScore), r.Category, "candidate %q", candidate)
		assert.Equal(t, expectedScore == 4, r.Acceptable, "candidate %q", candidate)
	}
}

func TestCategoryBoundaries(t *testing.T) {
	tests := []struct {
		score    int
		expected Category
	}{
		{0, Weak},
		{1, Weak},
		{2, Moderate},
		{3, Moderate},
		{4, Strong},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CategoryFor(tt.score), "score %d", tt.score)
	}
}

func TestEvaluateSpecialCharacterSet(t *testing.T) {
	for _, c := range SpecialCharacters {
		r := Evaluate(string(c))
		assert.True(t, r.Satisfied.Special, "expected %q to count as special", c)
	}

	for _, c := range []string{"-", "_", "+", "=", "[", "]", "~", "`", "'", ";", "/", "\\", " "} {
		r := Evaluate(c)
		assert.False(t, r.Satisfied.Special, "expected %q not to count as special", c)
	}
}

func TestEvaluateOnlyASCIIUppercaseAndDigits(t *testing.T) {
	r := Evaluate("ÄÖÜ١٢٣")

	assert.False(t, r.Satisfied.Uppercase)
	assert.False(t, r.Satisfied.Digit)
}

func TestEvaluateLengthCountsCodeUnits(t *testing.T) {
	// Each emoji is a surrogate pair in UTF-16: 6 emoji = 12 code units
	r := Evaluate(strings.Repeat("😀", 6))
	assert.True(t, r.Satisfied.Length)

	// 11 single-unit runes is one short
	r = Evaluate(strings.Repeat("é", 11))
	assert.False(t, r.Satisfied.Length)

	r = Evaluate(strings.Repeat("é", 12))
	assert.True(t, r.Satisfied.Length)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	for _, s := range []string{"", "short1!", "GoodPassword123!", "aaaaaaaaaaaa"} {
		assert.Equal(t, Evaluate(s), Evaluate(s))
	}
}

func TestEvaluateMonotonic(t *testing.T) {
	additions := map[Rule]string{
		RuleUppercase: "Q",
		RuleDigit:     "7",
		RuleSpecial:   "#",
		RuleLength:    "zzzzzzzzzzzz",
	}

	for _, base := range []string{"", "a", "abc", "ABC", "123", "!!", "abcdefghijklmnop"} {
		before := Evaluate(base)
		for _, rule := range before.Missing() {
			after := Evaluate(base + additions[rule])
			assert.GreaterOrEqual(t, after.Score, before.Score, "base %q + %s", base, rule)
			assert.True(t, after.Satisfied.Has(rule), "base %q + %s", base, rule)
		}
	}
}

func TestAcceptableProperty(t *testing.T) {
	candidates := []string{
		"Str0ngP@ssword!",
		"GoodPassword123!",
		"ABCDEFGHIJK1<",
		"1111111111A{",
		"😀😀😀😀😀A1|",
	}
	for _, c := range candidates {
		r := Evaluate(c)
		assert.True(t, r.Acceptable, "candidate %q", c)
		assert.Equal(t, 4, r.Score, "candidate %q", c)
	}
}

func TestWeakExample(t *testing.T) {
	r := Evaluate("short1!")

	assert.Less(t, r.Score, 4)
	assert.False(t, r.Acceptable)
	assert.Equal(t, []Rule{RuleLength, RuleUppercase}, r.Missing())
}

func TestRuleDescriptions(t *testing.T) {
	for _, r := range Rules {
		assert.NotEmpty(t, r.Description())
		assert.NotEqual(t, "unknown", r.String())
	}
}
