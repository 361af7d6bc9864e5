// Package starmodel groups rows into anonymized hypercube facts per
// collection, with minimum-donor suppression and a maximum-fact cap.
package starmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/samply/directory-sync-service-sub000/internal/agerange"
	"github.com/samply/directory-sync-service-sub000/internal/correction"
	"github.com/samply/directory-sync-service-sub000/internal/domain"
)

// Stats counts the observable outcomes of one build.
type Stats struct {
	// SkippedRows with missing sex/material/patient or a discarded diagnosis.
	SkippedRows int
	// SuppressedGroups with fewer distinct donors than the minimum.
	SuppressedGroups int
	// CappedGroups eligible but cut by the maximum-fact cap.
	CappedGroups int
}

// Builder derives fact tables from input rows using a correction map shared
// with the summary aggregation.
type Builder struct {
	corrections correction.Map
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets a logger for skip reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithClock overrides the time source for the last_update stamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder using the given correction map.
func NewBuilder(corrections correction.Map, opts ...Option) *Builder {
	b := &Builder{corrections: corrections, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type group struct {
	donors  map[string]struct{}
	samples int
}

// Build groups the collection's rows by (sex, diagnosis, age range, material)
// and emits one Fact per surviving group.
//
// Groups with fewer than minDonors distinct donors are suppressed before
// anything is emitted; no partial counts ever leave this function. When
// maxFacts is non-negative, emission stops after maxFacts facts; groups are
// visited in first-occurrence order, so which facts survive the cap follows
// that order. A negative maxFacts means unlimited.
//
// Rows are exploded per diagnosis, so one specimen with several diagnoses
// counts toward number_of_samples in each of its groups. That mirrors the
// upstream extraction and is intentional.
//
// Malformed rows are skipped and counted, never fatal. An empty result is a
// valid outcome, not an error.
func (b *Builder) Build(collectionID string, minDonors, maxFacts int, rows []domain.InputRow) ([]domain.Fact, Stats) {
	stats := Stats{}
	groups := make(map[domain.FactKey]*group)
	order := make([]domain.FactKey, 0)

	for _, row := range rows {
		diagnosis, ok := b.corrections.Resolve(row.Diagnosis)
		if !ok || row.Sex == "" || row.Material == "" || row.PatientID == "" {
			stats.SkippedRows++
			continue
		}

		key := domain.FactKey{
			Sex:       row.Sex,
			Diagnosis: diagnosis,
			AgeRange:  agerange.Classify(row.Age),
			Material:  row.Material,
		}
		g, seen := groups[key]
		if !seen {
			g = &group{donors: make(map[string]struct{})}
			groups[key] = g
			order = append(order, key)
		}
		g.donors[row.PatientID] = struct{}{}
		g.samples++
	}

	lastUpdate := b.now().Format("2006-01-02")
	facts := make([]domain.Fact, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if len(g.donors) < minDonors {
			stats.SuppressedGroups++
			continue
		}
		if maxFacts >= 0 && len(facts) >= maxFacts {
			stats.CappedGroups++
			continue
		}
		facts = append(facts, domain.Fact{
			ID:              FactID(collectionID, key),
			Collection:      collectionID,
			Sex:             key.Sex,
			Disease:         key.Diagnosis,
			AgeRange:        key.AgeRange,
			SampleType:      key.Material,
			NumberOfDonors:  len(g.donors),
			NumberOfSamples: g.samples,
			LastUpdate:      lastUpdate,
		})
	}

	if b.logger != nil && (stats.SkippedRows > 0 || stats.SuppressedGroups > 0) {
		b.logger.Info("fact table built",
			"collection", collectionID,
			"facts", len(facts),
			"skipped_rows", stats.SkippedRows,
			"suppressed_groups", stats.SuppressedGroups,
		)
	}
	return facts, stats
}

// FactID derives a stable fact identifier from the collection and the group
// key. Identical inputs always produce the identical ID, and distinct keys of
// one collection cannot collide short of a hash collision.
//
// For BBMRI-ERIC structured collection IDs the ":ID:" segment is rewritten to
// ":factID:", matching how the Directory names fact rows.
func FactID(collectionID string, key domain.FactKey) string {
	h := sha256.New()
	for _, part := range []string{collectionID, key.Sex, key.Diagnosis, key.AgeRange, key.Material} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	suffix := hex.EncodeToString(h.Sum(nil)[:8])

	prefix := collectionID
	if strings.Contains(prefix, ":ID:") {
		prefix = strings.Replace(prefix, ":ID:", ":factID:", 1)
	}
	return prefix + ":" + suffix
}
