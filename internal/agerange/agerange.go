// Package agerange maps a patient age to one of the Directory's discrete
// age-range labels.
package agerange

// The Directory's fixed age-range vocabulary.
const (
	Unknown    = "Unknown"
	Newborn    = "Newborn"
	Infant     = "Infant"
	Child      = "Child"
	Adolescent = "Adolescent"
	Adult      = "Adult"
	MiddleAged = "Middle-aged"
	Aged65to79 = "Aged (65-79 years)"
	AgedOver80 = "Aged (>80 years)"
)

// Classify buckets an age in whole years. Negative ages mean "missing" and
// classify as Unknown; the function is total and never fails. Callers
// normalize malformed input to a negative age before invocation.
func Classify(age int) string {
	switch {
	case age < 0:
		return Unknown
	case age == 0:
		return Newborn
	case age < 2:
		return Infant
	case age < 13:
		return Child
	case age < 18:
		return Adolescent
	case age < 45:
		return Adult
	case age < 65:
		return MiddleAged
	case age < 80:
		return Aged65to79
	default:
		return AgedOver80
	}
}
