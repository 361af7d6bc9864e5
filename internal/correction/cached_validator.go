package correction

import (
	"context"

	"github.com/samply/directory-sync-service-sub000/internal/correction/cache"
)

// CachedValidator decorates a Validator with a validity-answer cache. Only
// IsValidCode is cached; Normalize is a pure transform on the upstream side
// and cheap enough to pass through.
type CachedValidator struct {
	next  Validator
	store cache.Store
}

// NewCachedValidator wraps next with the given cache store.
func NewCachedValidator(next Validator, store cache.Store) *CachedValidator {
	return &CachedValidator{next: next, store: store}
}

func (v *CachedValidator) IsValidCode(ctx context.Context, code string) bool {
	if valid, ok := v.store.Get(ctx, code); ok {
		return valid
	}
	valid := v.next.IsValidCode(ctx, code)
	v.store.Set(ctx, code, valid)
	return valid
}

func (v *CachedValidator) Normalize(ctx context.Context, code string) string {
	return v.next.Normalize(ctx, code)
}
