// Package factsink mirrors the published star-model facts into a local
// Postgres table so operators can inspect what the registry received without
// querying the registry itself.
package factsink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS star_model_facts (
	id                TEXT PRIMARY KEY,
	collection_id     TEXT NOT NULL,
	sex               TEXT NOT NULL,
	disease           TEXT NOT NULL,
	age_range         TEXT NOT NULL,
	sample_type       TEXT NOT NULL,
	number_of_donors  INTEGER NOT NULL,
	number_of_samples INTEGER NOT NULL,
	last_update       DATE NOT NULL
);
CREATE INDEX IF NOT EXISTS star_model_facts_collection_idx
	ON star_model_facts (collection_id);
`

// Sink writes fact blocks to Postgres.
type Sink struct {
	pool *pgxpool.Pool
}

// New returns a Sink backed by the given pool.
func New(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

// CreateSchema creates the facts table if it does not exist yet.
func (s *Sink) CreateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create facts schema: %w", err)
	}
	return nil
}

// ReplaceFacts atomically swaps the stored facts of one collection for the
// given set.
func (s *Sink) ReplaceFacts(ctx context.Context, collectionID string, facts []domain.Fact) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin facts tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM star_model_facts WHERE collection_id = $1`, collectionID); err != nil {
		return fmt.Errorf("clear facts for %s: %w", collectionID, err)
	}

	if len(facts) > 0 {
		rows := make([][]any, 0, len(facts))
		for _, fact := range facts {
			rows = append(rows, []any{
				fact.ID, fact.Collection, fact.Sex, fact.Disease, fact.AgeRange,
				fact.SampleType, fact.NumberOfDonors, fact.NumberOfSamples, fact.LastUpdate,
			})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"star_model_facts"},
			[]string{"id", "collection_id", "sex", "disease", "age_range", "sample_type", "number_of_donors", "number_of_samples", "last_update"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert facts for %s: %w", collectionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit facts tx: %w", err)
	}
	return nil
}

// CountFacts returns the number of stored facts for a collection.
func (s *Sink) CountFacts(ctx context.Context, collectionID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM star_model_facts WHERE collection_id = $1`, collectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count facts for %s: %w", collectionID, err)
	}
	return count, nil
}
