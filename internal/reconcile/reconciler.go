// Package reconcile maps a session's recorded asset references onto the
// project's live asset set. References survive identifier churn through their
// content fingerprint; anything that cannot be matched is surfaced for manual
// reattachment, never dropped.
package reconcile

import (
	"sort"

	"cutroom-backend/internal/models"
)


type Result struct {
	// References holds one entry per input reference, in input order.
	References []models.ResolvedReference
	// Unresolved lists the references that matched no live asset.
	Unresolved []models.AssetReference
}

// Resolve matches each reference against the live assets.
//
// Per reference, first match wins with no partial credit:
//  1. exact id match
//  2. exact hash match, only when the reference's hash is non-null
//  3. exact match on both file_size and duration_ms, only when both are
//     non-null on the reference and present on the asset; a null on either
//     side disqualifies the pair, so two coincidentally equal sizes never
//     produce a false positive
//
// When several assets satisfy step 2 or 3, the earliest-created wins, id
// ascending as the final tie-break, so reconciliation is deterministic across
// runs and replicas.
func Resolve(refs []models.AssetReference, assets []models.Asset) *Result {
	candidates := make([]models.Asset, len(assets))
	copy(candidates, assets)
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	result := &Result{References: make([]models.ResolvedReference, 0, len(refs))}
	for _, ref := range refs {
		asset := match(ref, candidates)
		resolved := models.ResolvedReference{Reference: ref}
		if asset != nil {
			id := asset.ID
			resolved.AssetID = &id
		} else {
			result.Unresolved = append(result.Unresolved, ref)
		}
		result.References = append(result.References, resolved)
	}
	return result
}

func match(ref models.AssetReference, candidates []models.Asset) *models.Asset {
	for i := range candidates {
		if candidates[i].ID == ref.ID {
			return &candidates[i]
		}
	}

	if ref.Fingerprint.Hash != nil {
		for i := range candidates {
			if candidates[i].Hash.Valid && candidates[i].Hash.String == *ref.Fingerprint.Hash {
				return &candidates[i]
			}
		}
	}

	if ref.Fingerprint.FileSize != nil && ref.Fingerprint.DurationMS != nil {
		for i := range candidates {
			a := &candidates[i]
			if a.FileSize.Valid && a.DurationMS.Valid &&
				a.FileSize.Int64 == *ref.Fingerprint.FileSize &&
				a.DurationMS.Int64 == *ref.Fingerprint.DurationMS {
				return a
			}
		}
	}

	return nil
}
