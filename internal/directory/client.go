package directory

import (
	"context"
	"fmt"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
)

// MaxFactBlockSize is the Directory's hard limit on entities per write call.
const MaxFactBlockSize = 1000

// FactPageSize is how many fact IDs one page request asks for. A single page
// may not contain all facts of a collection; callers drain via AllFactIDs.
const FactPageSize = 1000

// Client is the registry surface the sync needs. One polymorphic interface
// with REST, GraphQL, and file-output implementations.
type Client interface {
	// Login establishes a session; other calls may rely on its token.
	Login(ctx context.Context) error
	// GetCollections fetches the stored records for the given collection IDs.
	GetCollections(ctx context.Context, countryCode string, ids []string) ([]CollectionGet, error)
	// PutCollections replaces the collection records.
	PutCollections(ctx context.Context, countryCode string, collections []CollectionPut) error
	// PutFacts writes one block of at most MaxFactBlockSize facts.
	PutFacts(ctx context.Context, countryCode string, facts []domain.Fact) error
	// DeleteFacts removes facts by ID.
	DeleteFacts(ctx context.Context, countryCode string, factIDs []string) error
	// FactIDPage returns one page of fact IDs for a collection, empty when
	// offset is past the end.
	FactIDPage(ctx context.Context, collectionID string, offset int) ([]string, error)
	// GetBiobank fetches the registry's biobank record.
	GetBiobank(ctx context.Context, id string) (*Biobank, error)
}

// PushFacts submits facts in blocks of at most MaxFactBlockSize. A failed
// block fails the whole push; there is no partial-commit tracking beyond the
// registry's own state.
func PushFacts(ctx context.Context, c Client, countryCode string, facts []domain.Fact) error {
	for start := 0; start < len(facts); start += MaxFactBlockSize {
		end := start + MaxFactBlockSize
		if end > len(facts) {
			end = len(facts)
		}
		if err := c.PutFacts(ctx, countryCode, facts[start:end]); err != nil {
			return fmt.Errorf("put facts block %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// AllFactIDs drains the paged fact-ID listing for a collection until an
// empty page.
func AllFactIDs(ctx context.Context, c Client, collectionID string) ([]string, error) {
	var all []string
	for {
		page, err := c.FactIDPage(ctx, collectionID, len(all))
		if err != nil {
			return nil, fmt.Errorf("fact id page at offset %d: %w", len(all), err)
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
	}
}
