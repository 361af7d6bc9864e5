package dirmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/directory-sync-service-sub000/internal/directory"
)

func TestMerge_CopiesRegistryOwnedFields(t *testing.T) {
	gets := []directory.CollectionGet{{
		ID:          "c1",
		Name:        "Registry Name",
		Description: "Registry description",
		Contact:     &directory.Ref{ID: "contact-1"},
		Country:     &directory.Ref{ID: "DE"},
		Biobank:     &directory.Ref{ID: "bb-1"},
		Type:        []directory.Ref{{ID: "SAMPLE"}, {ID: "RD"}},
		Network:     []directory.Ref{{ID: "net-1"}},
	}}
	puts := []directory.CollectionPut{{
		ID:   "c1",
		Name: "placeholder",
		Size: 42,
	}}

	result := Merge(gets, puts, nil)

	require.Equal(t, 1, result.Merged)
	assert.True(t, result.Success())

	got := puts[0]
	assert.Equal(t, "Registry Name", got.Name)
	assert.Equal(t, "Registry description", got.Description)
	assert.Equal(t, "contact-1", got.Contact)
	assert.Equal(t, "DE", got.Country)
	assert.Equal(t, "bb-1", got.Biobank)
	assert.Equal(t, []string{"SAMPLE", "RD"}, got.Type)
	assert.Equal(t, []string{"net-1"}, got.Network)
}

func TestMerge_NeverTouchesLocalAggregates(t *testing.T) {
	gets := []directory.CollectionGet{{ID: "c1", Name: "Registry Name"}}
	puts := []directory.CollectionPut{{
		ID:                 "c1",
		Size:               42,
		NumberOfDonors:     7,
		Sex:                []string{"FEMALE"},
		AgeLow:             20,
		AgeHigh:            60,
		Materials:          []string{"BLOOD"},
		DiagnosisAvailable: []string{"urn:miriam:icd:C50.1"},
	}}

	Merge(gets, puts, nil)

	got := puts[0]
	assert.Equal(t, 42, got.Size)
	assert.Equal(t, 7, got.NumberOfDonors)
	assert.Equal(t, []string{"FEMALE"}, got.Sex)
	assert.Equal(t, 20, got.AgeLow)
	assert.Equal(t, 60, got.AgeHigh)
	assert.Equal(t, []string{"BLOOD"}, got.Materials)
	assert.Equal(t, []string{"urn:miriam:icd:C50.1"}, got.DiagnosisAvailable)
}

func TestMerge_SkipsCollectionsMissingFromRegistry(t *testing.T) {
	gets := []directory.CollectionGet{{ID: "c1", Name: "Known"}}
	puts := []directory.CollectionPut{
		{ID: "c1"},
		{ID: "c2", Name: "placeholder"},
	}

	result := Merge(gets, puts, nil)

	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Success(), "partial merge still counts as success")
	assert.Equal(t, "placeholder", puts[1].Name, "unmatched collection left alone")
}

func TestMerge_EmptyInputsAreANoOpSuccess(t *testing.T) {
	assert.True(t, Merge(nil, nil, nil).Success())
	assert.True(t, Merge([]directory.CollectionGet{{ID: "c1"}}, nil, nil).Success())
}

func TestMerge_NothingMatchedIsAFailure(t *testing.T) {
	result := Merge(nil, []directory.CollectionPut{{ID: "c1"}}, nil)

	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.Success())
}
