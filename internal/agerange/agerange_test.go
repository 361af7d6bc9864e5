package agerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		age  int
		want string
	}{
		{-100, Unknown},
		{-1, Unknown},
		{0, Newborn},
		{1, Infant},
		{2, Child},
		{12, Child},
		{13, Adolescent},
		{17, Adolescent},
		{18, Adult},
		{30, Adult},
		{44, Adult},
		{45, MiddleAged},
		{64, MiddleAged},
		{65, Aged65to79},
		{79, Aged65to79},
		{80, AgedOver80},
		{120, AgedOver80},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.age), "age %d", tt.age)
	}
}

// Classify must be total: every age maps to exactly one of the nine labels.
func TestClassify_Total(t *testing.T) {
	labels := map[string]struct{}{
		Unknown: {}, Newborn: {}, Infant: {}, Child: {}, Adolescent: {},
		Adult: {}, MiddleAged: {}, Aged65to79: {}, AgedOver80: {},
	}

	for age := -10; age <= 150; age++ {
		got := Classify(age)
		_, known := labels[got]
		assert.True(t, known, "age %d returned unknown label %q", age, got)
	}
}
