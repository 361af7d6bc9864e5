package domain

// FactKey groups rows of one collection into a star-model cell. It exists
// only as an intermediate map key and is never persisted.
type FactKey struct {
	Sex       string
	Diagnosis string
	AgeRange  string
	Material  string
}

// Fact is one anonymized hypercube row for the Directory's fact table. Field
// names follow the Directory's attribute names.
type Fact struct {
	ID              string `json:"id"`
	Collection      string `json:"collection"`
	Sex             string `json:"sex"`
	Disease         string `json:"disease"`
	AgeRange        string `json:"age_range"`
	SampleType      string `json:"sample_type"`
	NumberOfDonors  int    `json:"number_of_donors"`
	NumberOfSamples int    `json:"number_of_samples"`
	LastUpdate      string `json:"last_update"`
}
