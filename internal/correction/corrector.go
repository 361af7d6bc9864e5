// Package correction validates and repairs diagnosis codes against the
// Directory's disease-type vocabulary, with a multi-step fallback chain.
package correction

import (
	"context"
	"log/slog"
	"strings"
)

// MiriamPrefix is the canonical code-system URI scheme the Directory expects
// for ICD-10 diagnosis references.
const MiriamPrefix = "urn:miriam:icd:"

// Map records the correction decided for every distinct raw diagnosis code
// seen in a run. An empty value means "discard this diagnosis, no valid
// substitute exists".
type Map map[string]string

// Resolve returns the corrected canonical code for a raw code. ok is false
// when the code was discarded or never seen; discarded diagnoses are simply
// omitted downstream.
func (m Map) Resolve(code string) (string, bool) {
	corrected, seen := m[code]
	if !seen || corrected == "" {
		return "", false
	}
	return corrected, true
}

// Stats counts the observable outcomes of one correction pass.
type Stats struct {
	// Total distinct raw codes processed.
	Total int
	// ValidAsSeeded codes whose canonical MIRIAM form was already valid.
	ValidAsSeeded int
	// Corrected codes repaired by WHO normalization or category truncation.
	Corrected int
	// Discarded codes with no valid substitute after all fallbacks.
	Discarded int
	// ValidatorCalls is the number of validity checks actually sent upstream.
	ValidatorCalls int
}

// Corrector builds a correction map over the distinct diagnosis codes of a
// run. The same inputs always produce the same map, and each validity check
// goes upstream at most once per distinct candidate code.
type Corrector struct {
	validator Validator
	logger    *slog.Logger
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithLogger sets a logger for discard and fallback reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Corrector) {
		c.logger = logger
	}
}

// New creates a Corrector backed by the given validator.
func New(validator Validator, opts ...Option) *Corrector {
	c := &Corrector{validator: validator}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildMap derives a correction for every distinct code in codes. The
// fallback chain per code:
//
//  1. seed with the canonical MIRIAM form and keep it if valid
//  2. WHO-normalize the raw code, re-derive the canonical form, re-check
//  3. truncate the normalized form at its first '.' (category level), re-check
//  4. truncate the original canonical form at its first '.', re-check
//  5. discard
//
// Validity answers are memoized for the whole pass: tens of thousands of
// rows may share a few hundred distinct codes, and different raw codes can
// collapse onto the same candidate.
func (c *Corrector) BuildMap(ctx context.Context, codes []string) (Map, Stats) {
	result := make(Map, len(codes))
	stats := Stats{}
	validity := make(map[string]bool)

	isValid := func(candidate string) bool {
		if valid, seen := validity[candidate]; seen {
			return valid
		}
		valid := c.validator.IsValidCode(ctx, candidate)
		stats.ValidatorCalls++
		validity[candidate] = valid
		return valid
	}

	for _, code := range codes {
		if _, done := result[code]; done {
			continue
		}
		stats.Total++

		seeded := MiriamPrefix + code
		if isValid(seeded) {
			result[code] = seeded
			stats.ValidAsSeeded++
			continue
		}

		normalized := MiriamPrefix + c.validator.Normalize(ctx, code)
		if normalized != seeded && isValid(normalized) {
			result[code] = normalized
			stats.Corrected++
			c.logCorrection(code, normalized, "who_normalized")
			continue
		}

		if category := truncateAtDot(normalized); category != normalized && isValid(category) {
			result[code] = category
			stats.Corrected++
			c.logCorrection(code, category, "normalized_category")
			continue
		}

		if category := truncateAtDot(seeded); category != seeded && isValid(category) {
			result[code] = category
			stats.Corrected++
			c.logCorrection(code, category, "category")
			continue
		}

		result[code] = ""
		stats.Discarded++
		if c.logger != nil {
			c.logger.Warn("diagnosis code discarded, no valid substitute", "code", code)
		}
	}

	return result, stats
}

func (c *Corrector) logCorrection(code, corrected, step string) {
	if c.logger != nil {
		c.logger.Info("diagnosis code corrected",
			"code", code,
			"corrected", corrected,
			"step", step,
		)
	}
}

// truncateAtDot cuts a canonical code at the first '.' of its code part,
// yielding the ICD-10 category code. The MIRIAM prefix carries no dots, so a
// plain index is safe.
func truncateAtDot(canonical string) string {
	if i := strings.Index(canonical, "."); i >= 0 {
		return canonical[:i]
	}
	return canonical
}
