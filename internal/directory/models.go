// Package directory talks to the BBMRI-ERIC Directory. Variants for the
// classic REST API, the EMX2 GraphQL API, and a file-output sink all satisfy
// the same Client interface and are selected at startup.
package directory

import (
	"strings"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
)

// Ref is how the Directory's GET representation points at another entity.
type Ref struct {
	ID string `json:"id"`
}

// CollectionGet is the Directory's stored representation of a collection.
// Only the registry-owned descriptive attributes are read back; aggregate
// fields are locally computed and never consumed from GET.
type CollectionGet struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	Contact        *Ref   `json:"contact,omitempty"`
	Country        *Ref   `json:"country,omitempty"`
	Biobank        *Ref   `json:"biobank,omitempty"`
	Type           []Ref  `json:"type,omitempty"`
	DataCategories []Ref  `json:"data_categories,omitempty"`
	Network        []Ref  `json:"network,omitempty"`
}

// CollectionPut is the update payload sent to the Directory: the locally
// computed aggregates plus the registry-owned fields merged back from GET so
// an update never clobbers them.
type CollectionPut struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name,omitempty"`
	Description         string   `json:"description,omitempty"`
	Contact             string   `json:"contact,omitempty"`
	Country             string   `json:"country,omitempty"`
	Biobank             string   `json:"biobank,omitempty"`
	Type                []string `json:"type,omitempty"`
	DataCategories      []string `json:"data_categories,omitempty"`
	Network             []string `json:"network,omitempty"`
	Size                int      `json:"size"`
	NumberOfDonors      int      `json:"number_of_donors"`
	Sex                 []string `json:"sex"`
	AgeLow              int      `json:"age_low"`
	AgeHigh             int      `json:"age_high"`
	Materials           []string `json:"materials"`
	StorageTemperatures []string `json:"storage_temperatures"`
	DiagnosisAvailable  []string `json:"diagnosis_available"`
}

// PutFromSummary lifts a computed summary into an update payload. Registry
// owned fields stay empty until the merge step fills them from GET.
func PutFromSummary(s domain.CollectionSummary) CollectionPut {
	return CollectionPut{
		ID:                  s.ID,
		Size:                s.Size,
		NumberOfDonors:      s.NumberOfDonors,
		Sex:                 s.Sex,
		AgeLow:              s.AgeLow,
		AgeHigh:             s.AgeHigh,
		Materials:           s.Materials,
		StorageTemperatures: s.StorageTemperatures,
		DiagnosisAvailable:  s.DiagnosisAvailable,
	}
}

// Biobank is the Directory's record for a biobank. These attributes are
// registry-owned and flow back into the clinical store.
type Biobank struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Acronym         string   `json:"acronym,omitempty"`
	Description     string   `json:"description,omitempty"`
	URL             string   `json:"url,omitempty"`
	JuridicalPerson string   `json:"juridical_person,omitempty"`
	ContactEmail    string   `json:"contact_email,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
}

// CountryCode extracts the country segment of a BBMRI-ERIC structured ID,
// e.g. "DE" from "bbmri-eric:ID:DE_ABC:collection:0". Returns "" when the ID
// does not follow that format.
func CountryCode(bbmriID string) string {
	const marker = ":ID:"
	i := strings.Index(bbmriID, marker)
	if i < 0 {
		return ""
	}
	rest := bbmriID[i+len(marker):]
	if j := strings.IndexAny(rest, "_:"); j >= 0 {
		rest = rest[:j]
	}
	if len(rest) != 2 {
		return ""
	}
	return rest
}
