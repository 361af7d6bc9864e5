package fhirstore

import "strings"

// materialAliases covers the sample material codes whose Directory
// counterpart is not a mechanical rename.
var materialAliases = map[string]string{
	"tissue-ffpe":                  "TISSUE_PARAFFIN_EMBEDDED",
	"tumor-tissue-ffpe":            "TISSUE_PARAFFIN_EMBEDDED",
	"normal-tissue-ffpe":           "TISSUE_PARAFFIN_EMBEDDED",
	"other-tissue-ffpe":            "TISSUE_PARAFFIN_EMBEDDED",
	"tissue-frozen":                "TISSUE_FROZEN",
	"tumor-tissue-frozen":          "TISSUE_FROZEN",
	"normal-tissue-frozen":         "TISSUE_FROZEN",
	"other-tissue-frozen":          "TISSUE_FROZEN",
	"blood-serum":                  "SERUM",
	"blood-plasma":                 "PLASMA",
	"peripheral-blood-cells-vital": "PERIPHERAL_BLOOD_CELLS",
	"derivative-other":             "OTHER",
	"liquid-other":                 "OTHER",
	"tissue-other":                 "OTHER",
}

// MapMaterial converts a BBMRI.de sample material code to its Directory
// vocabulary equivalent. Unknown codes are uppercased with dashes turned
// into underscores, which matches the Directory convention for the rest of
// the vocabulary. Empty input stays empty.
func MapMaterial(code string) string {
	if code == "" {
		return ""
	}
	lower := strings.ToLower(code)
	if mapped, ok := materialAliases[lower]; ok {
		return mapped
	}
	return strings.ReplaceAll(strings.ToUpper(lower), "-", "_")
}

// MapSex converts a FHIR administrative gender to the Directory sex
// vocabulary.
func MapSex(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "MALE"
	case "female":
		return "FEMALE"
	case "other":
		return "UNDIFFERENTIATED"
	default:
		return "UNKNOWN"
	}
}
