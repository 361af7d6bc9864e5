// Package fhirstore reads specimen, patient, and condition resources from the
// clinical FHIR store and writes registry metadata back into it. It supplies
// the aggregation engine with pre-grouped input rows; pagination is handled
// here, not in the engine.
package fhirstore

import (
	"encoding/json"
	"strings"
)

// Profile and extension URLs of the BBMRI.de FHIR implementation guide.
const (
	extCustodian          = "https://fhir.bbmri.de/StructureDefinition/Custodian"
	extStorageTemperature = "https://fhir.bbmri.de/StructureDefinition/StorageTemperature"
	extSampleDiagnosis    = "https://fhir.bbmri.de/StructureDefinition/SampleDiagnosis"
	extDescription        = "https://fhir.bbmri.de/StructureDefinition/OrganizationDescription"

	systemICD10 = "http://hl7.org/fhir/sid/icd-10"
)

// Identifier is a FHIR identifier.
type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// ContactPoint is a FHIR telecom entry.
type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Extension carries the single-value extensions this service reads and
// writes.
type Extension struct {
	URL                  string     `json:"url"`
	ValueString          string     `json:"valueString,omitempty"`
	ValueReference       *Reference `json:"valueReference,omitempty"`
	ValueCodeableConcept *Codeable  `json:"valueCodeableConcept,omitempty"`
}

// Reference points at another resource, e.g. "Organization/123".
type Reference struct {
	Reference string `json:"reference,omitempty"`
}

// LogicalID returns the ID part of a relative reference.
func (r *Reference) LogicalID() string {
	if r == nil {
		return ""
	}
	if i := strings.LastIndex(r.Reference, "/"); i >= 0 {
		return r.Reference[i+1:]
	}
	return r.Reference
}

// Coding is one code in a codeable concept.
type Coding struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Codeable is a FHIR CodeableConcept.
type Codeable struct {
	Coding []Coding `json:"coding,omitempty"`
}

// FirstCode returns the first coding's code, optionally restricted to a
// system.
func (c *Codeable) FirstCode(system string) string {
	if c == nil {
		return ""
	}
	for _, coding := range c.Coding {
		if system == "" || coding.System == system {
			return coding.Code
		}
	}
	return ""
}

// Organization is the clinical store's biobank or collection resource,
// reduced to the attributes the sync touches.
type Organization struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id,omitempty"`
	Identifier   []Identifier   `json:"identifier,omitempty"`
	Name         string         `json:"name,omitempty"`
	Alias        []string       `json:"alias,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
	Extension    []Extension    `json:"extension,omitempty"`
}

// BbmriEricID returns the organization's BBMRI-ERIC structured identifier,
// or "" when it has none.
func (o *Organization) BbmriEricID() string {
	for _, id := range o.Identifier {
		if strings.HasPrefix(id.Value, "bbmri-eric:") {
			return id.Value
		}
	}
	return ""
}

// IsCollection reports whether the organization represents a Directory
// collection rather than a biobank.
func (o *Organization) IsCollection() bool {
	return strings.Contains(o.BbmriEricID(), ":collection:")
}

type bundle struct {
	Entry []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
	Link []struct {
		Relation string `json:"relation"`
		URL      string `json:"url"`
	} `json:"link"`
}

func (b *bundle) nextLink() string {
	for _, link := range b.Link {
		if link.Relation == "next" {
			return link.URL
		}
	}
	return ""
}

type specimenResource struct {
	ResourceType string     `json:"resourceType"`
	ID           string     `json:"id"`
	Type         *Codeable  `json:"type,omitempty"`
	Subject      *Reference `json:"subject,omitempty"`
	Collection   *struct {
		CollectedDateTime string `json:"collectedDateTime,omitempty"`
	} `json:"collection,omitempty"`
	Extension []Extension `json:"extension,omitempty"`
}

type patientResource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Gender       string `json:"gender,omitempty"`
	BirthDate    string `json:"birthDate,omitempty"`
}

type conditionResource struct {
	ResourceType string     `json:"resourceType"`
	ID           string     `json:"id"`
	Code         *Codeable  `json:"code,omitempty"`
	Subject      *Reference `json:"subject,omitempty"`
}
