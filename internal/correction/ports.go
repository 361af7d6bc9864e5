package correction

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/validator.go -package=mocks Validator

// Validator answers whether a canonical diagnosis code is known to the
// Directory and normalizes raw ICD-10 codes to the WHO form.
//
// Both methods fail soft: on any upstream problem IsValidCode returns false
// and Normalize returns the code unchanged. Neither ever panics or returns an
// error to the corrector; an unreachable validator simply makes codes look
// invalid, which triggers the fallback chain.
type Validator interface {
	IsValidCode(ctx context.Context, code string) bool
	Normalize(ctx context.Context, code string) string
}
