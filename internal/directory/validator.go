package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CodeValidator checks canonical diagnosis codes against the Directory's
// disease-type vocabulary and normalizes raw codes to the WHO ICD-10 form.
// It satisfies the corrector's Validator port.
//
// Both methods fail soft: any upstream problem makes IsValidCode report
// "invalid" and Normalize return the code unchanged. The corrector's fallback
// chain handles the rest; there is no retry at this level.
type CodeValidator struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewCodeValidator creates a validator against the Directory's disease-type
// table.
func NewCodeValidator(baseURL string, logger *slog.Logger) *CodeValidator {
	return &CodeValidator{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (v *CodeValidator) IsValidCode(ctx context.Context, code string) bool {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("id==%s", code))
	q.Set("attrs", "id")
	endpoint := v.baseURL + "/api/v2/eu_bbmri_eric_disease_types?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := v.http.Do(req)
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("disease type lookup failed, treating code as invalid",
				"code", code, "error", err)
		}
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var out struct {
		Items []Ref `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	return len(out.Items) > 0
}

// Normalize rewrites a raw diagnosis code into the WHO ICD-10 form: trimmed,
// upper-cased, modifier suffixes dropped, and the subcategory dot inserted
// when missing ("C501" -> "C50.1"). Codes that do not look like ICD-10 pass
// through unchanged.
func (v *CodeValidator) Normalize(_ context.Context, code string) string {
	n := strings.ToUpper(strings.TrimSpace(code))
	n = strings.TrimSuffix(n, "-")

	if len(n) < 3 || n[0] < 'A' || n[0] > 'Z' {
		return code
	}
	if !isDigit(n[1]) || !isDigit(n[2]) {
		return code
	}
	if len(n) > 3 && n[3] != '.' {
		n = n[:3] + "." + n[3:]
	}
	return n
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
