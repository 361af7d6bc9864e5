package fhirstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samply/directory-sync-service-sub000/internal/aggregate"
	"github.com/samply/directory-sync-service-sub000/internal/domain"
	"github.com/samply/directory-sync-service-sub000/pkg/platform/sentinel"
)

const pageSize = 500

// Client talks to a FHIR R4 server such as Blaze or HAPI.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for extraction warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a Client for the FHIR server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extraction is the flattened view of the store's specimens, ready for
// aggregation. Rows is keyed by Directory collection ID. Stats carries the
// per-collection figures that cannot be derived from the exploded rows.
type Extraction struct {
	Rows        map[string][]domain.InputRow
	Stats       map[string]aggregate.RawStats
	SkippedRows int
}

// CollectionIDs returns the IDs of all collections that yielded rows.
func (e *Extraction) CollectionIDs() []string {
	ids := make([]string, 0, len(e.Rows))
	for id := range e.Rows {
		ids = append(ids, id)
	}
	return ids
}

// FetchRows walks the store's specimens, joins each one against its patient
// and the patient's conditions, and explodes the result into one row per
// specimen-diagnosis pair. Specimens without a resolvable collection fall
// back to defaultCollectionID; when that is empty too, the row is dropped and
// counted.
func (c *Client) FetchRows(ctx context.Context, defaultCollectionID string) (*Extraction, error) {
	collections, err := c.collectionIndex(ctx)
	if err != nil {
		return nil, err
	}
	patients, err := c.fetchPatients(ctx)
	if err != nil {
		return nil, err
	}
	conditions, err := c.fetchConditions(ctx)
	if err != nil {
		return nil, err
	}

	ext := &Extraction{
		Rows:  make(map[string][]domain.InputRow),
		Stats: make(map[string]aggregate.RawStats),
	}
	err = c.forEachPage(ctx, "/Specimen?_count="+strconv.Itoa(pageSize), func(raw json.RawMessage) error {
		var specimen specimenResource
		if err := json.Unmarshal(raw, &specimen); err != nil {
			return fmt.Errorf("decode specimen: %w", err)
		}
		c.explodeSpecimen(ext, specimen, collections, patients, conditions, defaultCollectionID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch specimens: %w", err)
	}
	return ext, nil
}

type patientInfo struct {
	Sex       string
	BirthYear int
}

func (c *Client) explodeSpecimen(ext *Extraction, specimen specimenResource, collections map[string]string, patients map[string]patientInfo, conditions map[string][]string, defaultCollectionID string) {
	collectionID := c.resolveCollection(specimen, collections, defaultCollectionID)
	if collectionID == "" {
		ext.SkippedRows++
		c.logger.Warn("specimen has no resolvable collection, dropped", "specimen", specimen.ID)
		return
	}

	patientID := specimen.Subject.LogicalID()
	if patientID == "" {
		ext.SkippedRows++
		c.logger.Warn("specimen has no subject, dropped", "specimen", specimen.ID)
		return
	}
	patient, ok := patients[patientID]
	if !ok {
		ext.SkippedRows++
		c.logger.Warn("specimen subject not found, dropped", "specimen", specimen.ID, "patient", patientID)
		return
	}

	stats := ext.Stats[collectionID]
	stats.SpecimenCount++
	if temp := storageTemperature(specimen); temp != "" {
		stats.StorageTemperatures = append(stats.StorageTemperatures, temp)
	}
	ext.Stats[collectionID] = stats

	base := domain.InputRow{
		CollectionID: collectionID,
		Material:     MapMaterial(specimen.Type.FirstCode("")),
		PatientID:    patientID,
		Sex:          MapSex(patient.Sex),
		Age:          c.ageAtCollection(patient, specimen),
	}

	diagnoses := sampleDiagnoses(specimen)
	if len(diagnoses) == 0 {
		diagnoses = conditions[patientID]
	}
	if len(diagnoses) == 0 {
		ext.Rows[collectionID] = append(ext.Rows[collectionID], base)
		return
	}
	for _, diagnosis := range diagnoses {
		row := base
		row.Diagnosis = diagnosis
		ext.Rows[collectionID] = append(ext.Rows[collectionID], row)
	}
}

func (c *Client) resolveCollection(specimen specimenResource, collections map[string]string, defaultCollectionID string) string {
	for _, ext := range specimen.Extension {
		if ext.URL != extCustodian {
			continue
		}
		logicalID := ext.ValueReference.LogicalID()
		if directoryID, ok := collections[logicalID]; ok {
			return directoryID
		}
		// Custodian names an organization the store does not know; the
		// default must not swallow the mismatch.
		return ""
	}
	return defaultCollectionID
}

func (c *Client) ageAtCollection(patient patientInfo, specimen specimenResource) int {
	if patient.BirthYear == 0 {
		return domain.AgeUnknown
	}
	referenceYear := c.now().Year()
	if specimen.Collection != nil && len(specimen.Collection.CollectedDateTime) >= 4 {
		if year, err := strconv.Atoi(specimen.Collection.CollectedDateTime[:4]); err == nil {
			referenceYear = year
		}
	}
	age := referenceYear - patient.BirthYear
	if age < 0 {
		return domain.AgeUnknown
	}
	return age
}

func sampleDiagnoses(specimen specimenResource) []string {
	var codes []string
	for _, ext := range specimen.Extension {
		if ext.URL != extSampleDiagnosis {
			continue
		}
		if code := ext.ValueCodeableConcept.FirstCode(""); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func storageTemperature(specimen specimenResource) string {
	for _, ext := range specimen.Extension {
		if ext.URL == extStorageTemperature {
			return ext.ValueCodeableConcept.FirstCode("")
		}
	}
	return ""
}

// collectionIndex maps FHIR organization logical IDs to Directory collection
// IDs, for resolving specimen custodians.
func (c *Client) collectionIndex(ctx context.Context) (map[string]string, error) {
	orgs, err := c.Organizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch organizations: %w", err)
	}
	index := make(map[string]string)
	for _, org := range orgs {
		if org.IsCollection() {
			index[org.ID] = org.BbmriEricID()
		}
	}
	return index, nil
}

func (c *Client) fetchPatients(ctx context.Context) (map[string]patientInfo, error) {
	patients := make(map[string]patientInfo)
	err := c.forEachPage(ctx, "/Patient?_count="+strconv.Itoa(pageSize), func(raw json.RawMessage) error {
		var patient patientResource
		if err := json.Unmarshal(raw, &patient); err != nil {
			return fmt.Errorf("decode patient: %w", err)
		}
		info := patientInfo{Sex: patient.Gender}
		if len(patient.BirthDate) >= 4 {
			if year, err := strconv.Atoi(patient.BirthDate[:4]); err == nil {
				info.BirthYear = year
			}
		}
		patients[patient.ID] = info
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch patients: %w", err)
	}
	return patients, nil
}

func (c *Client) fetchConditions(ctx context.Context) (map[string][]string, error) {
	conditions := make(map[string][]string)
	err := c.forEachPage(ctx, "/Condition?_count="+strconv.Itoa(pageSize), func(raw json.RawMessage) error {
		var condition conditionResource
		if err := json.Unmarshal(raw, &condition); err != nil {
			return fmt.Errorf("decode condition: %w", err)
		}
		patientID := condition.Subject.LogicalID()
		code := condition.Code.FirstCode(systemICD10)
		if patientID == "" || code == "" {
			return nil
		}
		conditions[patientID] = append(conditions[patientID], code)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch conditions: %w", err)
	}
	return conditions, nil
}

// Organizations fetches every organization resource in the store.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	err := c.forEachPage(ctx, "/Organization?_count="+strconv.Itoa(pageSize), func(raw json.RawMessage) error {
		var org Organization
		if err := json.Unmarshal(raw, &org); err != nil {
			return fmt.Errorf("decode organization: %w", err)
		}
		orgs = append(orgs, org)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// Biobanks returns the organizations that carry a BBMRI-ERIC biobank
// identifier.
func (c *Client) Biobanks(ctx context.Context) ([]Organization, error) {
	orgs, err := c.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	var biobanks []Organization
	for _, org := range orgs {
		if org.BbmriEricID() != "" && !org.IsCollection() {
			biobanks = append(biobanks, org)
		}
	}
	return biobanks, nil
}

// UpdateEntity writes the organization back to the store.
func (c *Client) UpdateEntity(ctx context.Context, org *Organization) error {
	body, err := json.Marshal(org)
	if err != nil {
		return fmt.Errorf("encode organization: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/Organization/"+org.ID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/fhir+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update organization %s: %w: %v", org.ID, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("update organization %s: unexpected status %d", org.ID, resp.StatusCode)
	}
	return nil
}

// forEachPage fetches path and every rel=next page after it, invoking fn for
// each entry resource.
func (c *Client) forEachPage(ctx context.Context, path string, fn func(raw json.RawMessage) error) error {
	url := c.baseURL + path
	for url != "" {
		page, err := c.fetchBundle(ctx, url)
		if err != nil {
			return err
		}
		for _, entry := range page.Entry {
			if err := fn(entry.Resource); err != nil {
				return err
			}
		}
		url = page.nextLink()
	}
	return nil
}

func (c *Client) fetchBundle(ctx context.Context, url string) (*bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fhir store: %w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fhir store: unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var page bundle
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &page, nil
}
