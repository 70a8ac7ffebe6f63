package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectMatchesEvaluate(t *testing.T) {
	p := Project("GoodPassword123!", "GoodPassword123!")

	assert.Equal(t, Evaluate("GoodPassword123!"), p.Policy)
	assert.True(t, p.SecretsMatch)
	assert.False(t, p.ShowMismatch("GoodPassword123!"))
}

func TestProjectMismatch(t *testing.T) {
	p := Project("GoodPassword123!", "Good")

	assert.False(t, p.SecretsMatch)
	assert.True(t, p.ShowMismatch("Good"))
}

func TestProjectEmptyConfirmationHidesMismatch(t *testing.T) {
	p := Project("abc", "")

	assert.False(t, p.SecretsMatch)
	assert.False(t, p.ShowMismatch(""))
}

func TestProjectAfterKeystrokesEqualsFinalEvaluation(t *testing.T) {
	final := "Str0ngP@ssword!"

	// Type forwards
	var p Projection
	for i := 1; i <= len(final); i++ {
		p = Project(final[:i], "")
	}
	assert.Equal(t, Evaluate(final), p.Policy)

	// Type with corrections: overshoot, backspace, retype
	keystrokes := []string{"S", "St", "Stx", "St", "Str0", "Str0ngP@ss", "Str0ngP@sswordXX", "Str0ngP@ssword", final}
	for _, k := range keystrokes {
		p = Project(k, final)
	}
	assert.Equal(t, Evaluate(final), p.Policy)
	assert.True(t, p.SecretsMatch)
}
