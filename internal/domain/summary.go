package domain

// CollectionSummary is the per-collection aggregate pushed to the Directory's
// collection record. Set-valued fields are deduplicated, first-seen order.
// It is mutated only during aggregation and read-only afterward.
type CollectionSummary struct {
	ID             string
	Size           int
	NumberOfDonors int
	Sex            []string
	// AgeLow and AgeHigh are min/max of known patient ages, or AgeUnknown
	// when no ages are known.
	AgeLow              int
	AgeHigh             int
	Materials           []string
	StorageTemperatures []string
	DiagnosisAvailable  []string
}
