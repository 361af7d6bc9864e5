// Package aggregate folds per-specimen rows into one summary record per
// collection for the Directory's collection attributes.
package aggregate

import (
	"github.com/samply/directory-sync-service-sub000/internal/correction"
	"github.com/samply/directory-sync-service-sub000/internal/domain"
	stringset "github.com/samply/directory-sync-service-sub000/pkg/platform/strings"
)

// RawStats carries per-collection facts the exploded rows cannot express:
// rows repeat one specimen per diagnosis, so the true specimen count comes
// straight from the row source, as do the storage temperatures read off the
// specimen resources.
type RawStats struct {
	SpecimenCount       int
	StorageTemperatures []string
}

// Summarize folds all rows of one collection plus its raw stats into a
// CollectionSummary.
//
// Donor counting deduplicates patient IDs across rows. Diagnoses pass through
// the correction map; discarded corrections are simply omitted and duplicate
// post-correction values collapse via set semantics.
func Summarize(collectionID string, rows []domain.InputRow, raw RawStats, corrections correction.Map) domain.CollectionSummary {
	summary := domain.CollectionSummary{
		ID:      collectionID,
		Size:    raw.SpecimenCount,
		AgeLow:  domain.AgeUnknown,
		AgeHigh: domain.AgeUnknown,
	}

	donors := make(map[string]struct{})
	sexes := stringset.NewSet()
	materials := stringset.NewSet()
	diagnoses := stringset.NewSet()

	for _, row := range rows {
		if row.PatientID != "" {
			donors[row.PatientID] = struct{}{}
		}
		sexes.Add(row.Sex)
		materials.Add(row.Material)
		if row.HasAge() {
			if summary.AgeLow == domain.AgeUnknown || row.Age < summary.AgeLow {
				summary.AgeLow = row.Age
			}
			if row.Age > summary.AgeHigh {
				summary.AgeHigh = row.Age
			}
		}
		if corrected, ok := corrections.Resolve(row.Diagnosis); ok {
			diagnoses.Add(corrected)
		}
	}

	summary.NumberOfDonors = len(donors)
	summary.Sex = sexes.Values()
	summary.Materials = materials.Values()
	summary.StorageTemperatures = stringset.DedupeAndTrim(raw.StorageTemperatures)
	summary.DiagnosisAvailable = diagnoses.Values()
	return summary
}
