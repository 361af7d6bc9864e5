package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
)

// pagedFakeClient serves canned fact-ID pages and records fact writes.
type pagedFakeClient struct {
	FileClient // embed for the no-op surface
	pages      [][]string
	pageCalls  int
	putBlocks  [][]domain.Fact
	failPutAt  int
}

func (f *pagedFakeClient) FactIDPage(_ context.Context, _ string, offset int) ([]string, error) {
	f.pageCalls++
	for _, page := range f.pages {
		if offset == 0 {
			return page, nil
		}
		offset -= len(page)
	}
	return nil, nil
}

func (f *pagedFakeClient) PutFacts(_ context.Context, _ string, facts []domain.Fact) error {
	f.putBlocks = append(f.putBlocks, facts)
	if f.failPutAt > 0 && len(f.putBlocks) >= f.failPutAt {
		return errors.New("registry write failed")
	}
	return nil
}

func makeFacts(n int) []domain.Fact {
	facts := make([]domain.Fact, 0, n)
	for i := 0; i < n; i++ {
		facts = append(facts, domain.Fact{ID: fmt.Sprintf("fact-%d", i)})
	}
	return facts
}

func TestAllFactIDs_DrainsEveryPage(t *testing.T) {
	client := &pagedFakeClient{pages: [][]string{
		{"f1", "f2"},
		{"f3"},
	}}

	ids, err := AllFactIDs(context.Background(), client, "bbmri-eric:ID:DE_X:collection:0")

	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, ids)
	assert.Equal(t, 3, client.pageCalls, "drains until the empty page")
}

func TestAllFactIDs_EmptyCollection(t *testing.T) {
	client := &pagedFakeClient{}

	ids, err := AllFactIDs(context.Background(), client, "c")

	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPushFacts_ChunksAtBlockLimit(t *testing.T) {
	client := &pagedFakeClient{}

	err := PushFacts(context.Background(), client, "DE", makeFacts(2500))

	require.NoError(t, err)
	require.Len(t, client.putBlocks, 3)
	assert.Len(t, client.putBlocks[0], 1000)
	assert.Len(t, client.putBlocks[1], 1000)
	assert.Len(t, client.putBlocks[2], 500)
}

func TestPushFacts_FailedBlockFailsPush(t *testing.T) {
	client := &pagedFakeClient{failPutAt: 2}

	err := PushFacts(context.Background(), client, "DE", makeFacts(2500))

	require.Error(t, err)
	assert.Len(t, client.putBlocks, 2, "no blocks after the failed one")
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"bbmri-eric:ID:DE_ABC:collection:0", "DE"},
		{"bbmri-eric:ID:NL_biobank1", "NL"},
		{"bbmri-eric:ID:SE:collection:x", "SE"},
		{"no-structured-id", ""},
		{"bbmri-eric:ID:TOOLONG_x", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountryCode(tt.id), "id %q", tt.id)
	}
}

func TestPutFromSummary_CarriesAggregatesOnly(t *testing.T) {
	put := PutFromSummary(domain.CollectionSummary{
		ID:             "c1",
		Size:           10,
		NumberOfDonors: 4,
		Sex:            []string{"FEMALE"},
		AgeLow:         20,
		AgeHigh:        60,
	})

	assert.Equal(t, "c1", put.ID)
	assert.Equal(t, 10, put.Size)
	assert.Equal(t, 4, put.NumberOfDonors)
	assert.Empty(t, put.Name, "registry-owned fields stay empty until merge")
	assert.Empty(t, put.Biobank)
}
