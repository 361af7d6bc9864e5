// Package update decides whether a clinical-store write is needed by
// snapshotting an entity before mutation and comparing afterwards.
package update

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field applies one registry attribute to the entity. Implementations must
// tolerate missing registry data as a no-op so a sparse registry record never
// blanks local fields.
type Field[E, D any] func(entity *E, data D)

// Updater applies an ordered list of field updaters and reports whether they
// changed anything.
type Updater[E, D any] struct {
	fields []Field[E, D]
}

// New builds an Updater from the given field updaters. Order is preserved;
// later updaters see the effects of earlier ones.
func New[E, D any](fields ...Field[E, D]) *Updater[E, D] {
	return &Updater[E, D]{fields: fields}
}

// Apply takes a deep snapshot of entity, runs every field updater, and
// compares the result structurally against the snapshot. It returns false
// when nothing changed, which is a success and means no write is needed. When it
// returns true the caller is responsible for persisting the entity.
//
// The snapshot is a JSON round-trip, so E must be JSON-serializable; the
// clinical-store entities all are.
func (u *Updater[E, D]) Apply(entity *E, data D) (bool, error) {
	before, err := snapshot(entity)
	if err != nil {
		return false, fmt.Errorf("snapshot before update: %w", err)
	}

	for _, field := range u.fields {
		field(entity, data)
	}

	after, err := snapshot(entity)
	if err != nil {
		return false, fmt.Errorf("snapshot after update: %w", err)
	}
	return !bytes.Equal(before, after), nil
}

func snapshot[E any](entity *E) ([]byte, error) {
	return json.Marshal(entity)
}
