// Package dirmerge reconciles the Directory's stored collection records with
// the locally computed update payload so a PUT never clobbers registry-owned
// attributes.
package dirmerge

import (
	"log/slog"

	"github.com/samply/directory-sync-service-sub000/internal/directory"
)

// Result reports how many collections were reconciled.
type Result struct {
	Merged  int
	Skipped int
}

// Success reports whether the merge is usable: at least one collection
// merged, or nothing to merge on either side. An empty registry (mock or
// fresh install) is not a failure.
func (r Result) Success() bool {
	return r.Merged > 0 || (r.Merged == 0 && r.Skipped == 0)
}

// Merge copies the registry-owned descriptive fields from the GET records
// into the matching PUT records, in place. Locally computed aggregates (size,
// donor counts, sex/age/material/diagnosis) are never touched. A PUT
// collection without a GET counterpart is skipped and logged; the rest of the
// merge proceeds.
func Merge(gets []directory.CollectionGet, puts []directory.CollectionPut, logger *slog.Logger) Result {
	byID := make(map[string]directory.CollectionGet, len(gets))
	for _, get := range gets {
		byID[get.ID] = get
	}

	result := Result{}
	for i := range puts {
		get, ok := byID[puts[i].ID]
		if !ok {
			result.Skipped++
			if logger != nil {
				logger.Warn("collection missing from registry, not merged", "collection", puts[i].ID)
			}
			continue
		}
		mergeCollection(&puts[i], get)
		result.Merged++
	}
	return result
}

func mergeCollection(put *directory.CollectionPut, get directory.CollectionGet) {
	put.Name = get.Name
	put.Description = get.Description
	put.Contact = refID(get.Contact)
	put.Country = refID(get.Country)
	put.Biobank = refID(get.Biobank)
	put.Type = refIDs(get.Type)
	put.DataCategories = refIDs(get.DataCategories)
	put.Network = refIDs(get.Network)
}

func refID(ref *directory.Ref) string {
	if ref == nil {
		return ""
	}
	return ref.ID
}

func refIDs(refs []directory.Ref) []string {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}
