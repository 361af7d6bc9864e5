// Package cache stores the Directory's code-validity answers so long-running
// deployments do not re-ask the registry for the same vocabulary on every
// timed sync pass. Entries expire; the corrector's own per-run memoization is
// separate and always an explicit in-run map.
package cache

import "context"

// Store holds validity answers keyed by canonical code.
type Store interface {
	// Get returns the cached answer and whether one was present.
	Get(ctx context.Context, code string) (valid bool, ok bool)
	// Set records an answer. Failures are swallowed; the cache is advisory.
	Set(ctx context.Context, code string, valid bool)
}
