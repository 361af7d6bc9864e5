package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entity struct {
	Name  string   `json:"name,omitempty"`
	Alias []string `json:"alias,omitempty"`
}

type record struct {
	Name    string
	Acronym string
}

func nameField(e *entity, d record) {
	if d.Name != "" {
		e.Name = d.Name
	}
}

func aliasField(e *entity, d record) {
	if d.Acronym != "" {
		e.Alias = []string{d.Acronym}
	}
}

func TestApply_NoRegistryDataIsUnchanged(t *testing.T) {
	u := New(nameField, aliasField)
	e := &entity{Name: "Local Biobank"}

	changed, err := u.Apply(e, record{})

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "Local Biobank", e.Name)
}

func TestApply_NewNameIsChanged(t *testing.T) {
	u := New(nameField, aliasField)
	e := &entity{Name: "Local Biobank"}

	changed, err := u.Apply(e, record{Name: "Registry Biobank"})

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Registry Biobank", e.Name)
}

func TestApply_SameValueIsUnchanged(t *testing.T) {
	u := New(nameField)
	e := &entity{Name: "Biobank"}

	changed, err := u.Apply(e, record{Name: "Biobank"})

	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApply_LaterFieldsSeeEarlierEffects(t *testing.T) {
	upper := func(e *entity, _ record) {
		if e.Name != "" {
			e.Alias = append(e.Alias, e.Name)
		}
	}
	u := New(nameField, upper)
	e := &entity{}

	changed, err := u.Apply(e, record{Name: "BB"})

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"BB"}, e.Alias)
}
