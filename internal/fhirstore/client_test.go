package fhirstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/directory-sync-service-sub000/internal/directory"
	"github.com/samply/directory-sync-service-sub000/internal/domain"
)

const collectionDE = "bbmri-eric:ID:DE_X:collection:0"

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func bundleOf(resources ...string) string {
	entries := make([]string, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, fmt.Sprintf(`{"resource":%s}`, r))
	}
	body := `{"resourceType":"Bundle","entry":[`
	for i, e := range entries {
		if i > 0 {
			body += ","
		}
		body += e
	}
	return body + `]}`
}

func newStoreServer(t *testing.T, byPath map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := byPath[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchRows_ExplodesSpecimensPerDiagnosis(t *testing.T) {
	srv := newStoreServer(t, map[string]string{
		"/Organization": bundleOf(
			`{"resourceType":"Organization","id":"org-1","identifier":[{"value":"` + collectionDE + `"}]}`,
		),
		"/Patient": bundleOf(
			`{"resourceType":"Patient","id":"p1","gender":"female","birthDate":"1980-05-12"}`,
		),
		"/Condition": bundleOf(
			`{"resourceType":"Condition","id":"d1","subject":{"reference":"Patient/p1"},"code":{"coding":[{"system":"http://hl7.org/fhir/sid/icd-10","code":"C50.1"}]}}`,
			`{"resourceType":"Condition","id":"d2","subject":{"reference":"Patient/p1"},"code":{"coding":[{"system":"http://hl7.org/fhir/sid/icd-10","code":"E11"}]}}`,
		),
		"/Specimen": bundleOf(
			`{"resourceType":"Specimen","id":"s1","subject":{"reference":"Patient/p1"},"type":{"coding":[{"code":"whole-blood"}]},"collection":{"collectedDateTime":"2020-03-01"},"extension":[{"url":"https://fhir.bbmri.de/StructureDefinition/Custodian","valueReference":{"reference":"Organization/org-1"}},{"url":"https://fhir.bbmri.de/StructureDefinition/StorageTemperature","valueCodeableConcept":{"coding":[{"code":"temperature-18to-35"}]}}]}`,
		),
	})
	defer srv.Close()

	c := New(srv.URL, withClock(fixedClock))
	ext, err := c.FetchRows(context.Background(), "")

	require.NoError(t, err)
	require.Contains(t, ext.Rows, collectionDE)
	rows := ext.Rows[collectionDE]
	require.Len(t, rows, 2, "one row per patient diagnosis")

	assert.Equal(t, "WHOLE_BLOOD", rows[0].Material)
	assert.Equal(t, "FEMALE", rows[0].Sex)
	assert.Equal(t, 40, rows[0].Age, "age at collection date, not today")
	assert.Equal(t, "C50.1", rows[0].Diagnosis)
	assert.Equal(t, "E11", rows[1].Diagnosis)

	stats := ext.Stats[collectionDE]
	assert.Equal(t, 1, stats.SpecimenCount, "specimen counted once despite two rows")
	assert.Equal(t, []string{"temperature-18to-35"}, stats.StorageTemperatures)
	assert.Zero(t, ext.SkippedRows)
}

func TestFetchRows_SampleDiagnosisBeatsConditions(t *testing.T) {
	srv := newStoreServer(t, map[string]string{
		"/Organization": bundleOf(),
		"/Patient": bundleOf(
			`{"resourceType":"Patient","id":"p1","gender":"male","birthDate":"1990"}`,
		),
		"/Condition": bundleOf(
			`{"resourceType":"Condition","id":"d1","subject":{"reference":"Patient/p1"},"code":{"coding":[{"system":"http://hl7.org/fhir/sid/icd-10","code":"E11"}]}}`,
		),
		"/Specimen": bundleOf(
			`{"resourceType":"Specimen","id":"s1","subject":{"reference":"Patient/p1"},"extension":[{"url":"https://fhir.bbmri.de/StructureDefinition/SampleDiagnosis","valueCodeableConcept":{"coding":[{"code":"C34"}]}}]}`,
		),
	})
	defer srv.Close()

	c := New(srv.URL, withClock(fixedClock))
	ext, err := c.FetchRows(context.Background(), collectionDE)

	require.NoError(t, err)
	rows := ext.Rows[collectionDE]
	require.Len(t, rows, 1)
	assert.Equal(t, "C34", rows[0].Diagnosis)
}

func TestFetchRows_FallsBackToDefaultCollection(t *testing.T) {
	srv := newStoreServer(t, map[string]string{
		"/Organization": bundleOf(),
		"/Patient":      bundleOf(`{"resourceType":"Patient","id":"p1","gender":"female"}`),
		"/Condition":    bundleOf(),
		"/Specimen": bundleOf(
			`{"resourceType":"Specimen","id":"s1","subject":{"reference":"Patient/p1"}}`,
		),
	})
	defer srv.Close()

	c := New(srv.URL, withClock(fixedClock))
	ext, err := c.FetchRows(context.Background(), collectionDE)

	require.NoError(t, err)
	rows := ext.Rows[collectionDE]
	require.Len(t, rows, 1)
	assert.Equal(t, domain.AgeUnknown, rows[0].Age, "missing birth date")
	assert.Empty(t, rows[0].Diagnosis)
}

func TestFetchRows_DropsUnresolvableSpecimens(t *testing.T) {
	srv := newStoreServer(t, map[string]string{
		"/Organization": bundleOf(),
		"/Patient":      bundleOf(`{"resourceType":"Patient","id":"p1"}`),
		"/Condition":    bundleOf(),
		"/Specimen": bundleOf(
			// custodian points at an unknown organization
			`{"resourceType":"Specimen","id":"s1","subject":{"reference":"Patient/p1"},"extension":[{"url":"https://fhir.bbmri.de/StructureDefinition/Custodian","valueReference":{"reference":"Organization/ghost"}}]}`,
			// no custodian and no default
			`{"resourceType":"Specimen","id":"s2","subject":{"reference":"Patient/p1"}}`,
			// no subject
			`{"resourceType":"Specimen","id":"s3"}`,
		),
	})
	defer srv.Close()

	c := New(srv.URL, withClock(fixedClock))
	ext, err := c.FetchRows(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, ext.Rows)
	assert.Equal(t, 3, ext.SkippedRows)
}

func TestFetchRows_FollowsNextLinks(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/Organization", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(bundleOf()))
	})
	mux.HandleFunc("/Patient", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(bundleOf(`{"resourceType":"Patient","id":"p2","gender":"male"}`)))
			return
		}
		body := `{"resourceType":"Bundle","entry":[{"resource":{"resourceType":"Patient","id":"p1","gender":"female"}}],"link":[{"relation":"next","url":"` + srv.URL + `/Patient?page=2"}]}`
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/Condition", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(bundleOf()))
	})
	mux.HandleFunc("/Specimen", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(bundleOf(
			`{"resourceType":"Specimen","id":"s1","subject":{"reference":"Patient/p1"}}`,
			`{"resourceType":"Specimen","id":"s2","subject":{"reference":"Patient/p2"}}`,
		)))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, withClock(fixedClock))
	ext, err := c.FetchRows(context.Background(), collectionDE)

	require.NoError(t, err)
	require.Len(t, ext.Rows[collectionDE], 2, "patient from page two resolved")
	assert.Zero(t, ext.SkippedRows)
}

func TestBiobanks_FiltersCollectionsAndUnidentified(t *testing.T) {
	srv := newStoreServer(t, map[string]string{
		"/Organization": bundleOf(
			`{"resourceType":"Organization","id":"org-1","identifier":[{"value":"bbmri-eric:ID:DE_X"}],"name":"Biobank X"}`,
			`{"resourceType":"Organization","id":"org-2","identifier":[{"value":"`+collectionDE+`"}]}`,
			`{"resourceType":"Organization","id":"org-3","name":"Plain hospital"}`,
		),
	})
	defer srv.Close()

	c := New(srv.URL)
	biobanks, err := c.Biobanks(context.Background())

	require.NoError(t, err)
	require.Len(t, biobanks, 1)
	assert.Equal(t, "Biobank X", biobanks[0].Name)
}

func TestUpdateEntity_PutsOrganization(t *testing.T) {
	var got Organization
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/Organization/org-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	org := &Organization{ResourceType: "Organization", ID: "org-1", Name: "Updated"}

	require.NoError(t, c.UpdateEntity(context.Background(), org))
	assert.Equal(t, "Updated", got.Name)
}

func TestNewBiobankUpdater(t *testing.T) {
	updater := NewBiobankUpdater()
	org := &Organization{ResourceType: "Organization", ID: "org-1", Name: "Old Name"}

	t.Run("empty registry record leaves entity unchanged", func(t *testing.T) {
		changed, err := updater.Apply(org, directory.Biobank{})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "Old Name", org.Name)
	})

	t.Run("registry data is copied in", func(t *testing.T) {
		changed, err := updater.Apply(org, directory.Biobank{
			Name:         "New Name",
			Acronym:      "NN",
			Description:  "A biobank",
			ContactEmail: "info@example.org",
			URL:          "https://example.org",
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "New Name", org.Name)
		assert.Equal(t, []string{"NN"}, org.Alias)
		require.Len(t, org.Extension, 1)
		assert.Equal(t, "A biobank", org.Extension[0].ValueString)
		assert.Len(t, org.Telecom, 2)
	})

	t.Run("reapplying the same data is a no-op", func(t *testing.T) {
		changed, err := updater.Apply(org, directory.Biobank{Name: "New Name", Acronym: "NN"})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Len(t, org.Alias, 1, "acronym not appended twice")
	})
}

func TestMapMaterial(t *testing.T) {
	cases := map[string]string{
		"whole-blood":       "WHOLE_BLOOD",
		"tissue-ffpe":       "TISSUE_PARAFFIN_EMBEDDED",
		"tumor-tissue-ffpe": "TISSUE_PARAFFIN_EMBEDDED",
		"blood-serum":       "SERUM",
		"blood-plasma":      "PLASMA",
		"dna":               "DNA",
		"derivative-other":  "OTHER",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, MapMaterial(in), "material %q", in)
	}
}

func TestMapSex(t *testing.T) {
	assert.Equal(t, "MALE", MapSex("male"))
	assert.Equal(t, "FEMALE", MapSex("Female"))
	assert.Equal(t, "UNDIFFERENTIATED", MapSex("other"))
	assert.Equal(t, "UNKNOWN", MapSex("unknown"))
	assert.Equal(t, "UNKNOWN", MapSex(""))
}
