package policy

// Projection is the live feedback for a password form: the strength of the
// current candidate and whether the confirmation matches it.
type Projection struct {
	Policy       Result
	SecretsMatch bool
}

// Project recomputes the feedback from the latest field values.
// It never rejects; prior projections are irrelevant to the result.
func Project(candidate, confirmation string) Projection {
	return Projection{
		Policy:       Evaluate(candidate),
		SecretsMatch: candidate == confirmation,
	}
}

// ShowMismatch reports whether a "passwords do not match" hint should be
// shown: only once the user has started typing a confirmation.
func (p Projection) ShowMismatch(confirmation string) bool {
	return !p.SecretsMatch && confirmation != ""
}
