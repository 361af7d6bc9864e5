// Package domain holds the data model shared by the aggregation passes: raw
// input rows, collection summaries, and star-model facts.
package domain

// AgeUnknown marks a missing patient age. Callers must not treat it as a real
// age.
const AgeUnknown = -1

// InputRow is one (specimen, diagnosis) pair extracted from the clinical
// store. A specimen with N associated diagnoses expands into N rows sharing
// all other fields. Rows are built fresh per run and owned by the aggregation
// pass that created them.
type InputRow struct {
	CollectionID string
	Material     string
	PatientID    string
	Sex          string
	// Age in whole years at specimen collection, or AgeUnknown.
	Age       int
	Diagnosis string
}

// HasAge reports whether the row carries a usable age.
func (r InputRow) HasAge() bool {
	return r.Age >= 0
}
