package reconcile_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cutroom-backend/internal/models"
	"cutroom-backend/internal/reconcile"
)

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func asset(id string, createdAt time.Time) models.Asset {
	return models.Asset{ID: id, Name: id, Type: "video", CreatedAt: createdAt}
}

func withHash(a models.Asset, hash string) models.Asset {
	a.Hash = sql.NullString{String: hash, Valid: true}
	return a
}

func withSizeDuration(a models.Asset, size, duration int64) models.Asset {
	a.FileSize = sql.NullInt64{Int64: size, Valid: true}
	a.DurationMS = sql.NullInt64{Int64: duration, Valid: true}
	return a
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestResolve_IDMatchWinsFirst(t *testing.T) {
	ref := models.AssetReference{
		ID:          "a1",
		Fingerprint: models.Fingerprint{Hash: strPtr("deadbeef")},
	}
	// Another asset shares the hash, but the id match takes precedence.
	assets := []models.Asset{
		withHash(asset("other", baseTime), "deadbeef"),
		asset("a1", baseTime.Add(time.Hour)),
	}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Empty(t, result.Unresolved)
	assert.Equal(t, "a1", *result.References[0].AssetID)
}

func TestResolve_HashMatch(t *testing.T) {
	ref := models.AssetReference{
		ID:          "gone",
		Fingerprint: models.Fingerprint{Hash: strPtr("cafe")},
	}
	assets := []models.Asset{withHash(asset("re-uploaded", baseTime), "cafe")}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Equal(t, "re-uploaded", *result.References[0].AssetID)
}

func TestResolve_NullHashNeverMatches(t *testing.T) {
	ref := models.AssetReference{ID: "gone"}
	// Asset with a null hash must not match a reference with a null hash.
	assets := []models.Asset{asset("candidate", baseTime)}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Nil(t, result.References[0].AssetID)
	assert.Len(t, result.Unresolved, 1)
}

func TestResolve_SizeAndDurationBothRequired(t *testing.T) {
	// Size matches but the reference's duration is unknown: no partial
	// credit, the pair is disqualified.
	ref := models.AssetReference{
		ID:          "gone",
		Fingerprint: models.Fingerprint{FileSize: intPtr(1000)},
	}
	assets := []models.Asset{withSizeDuration(asset("candidate", baseTime), 1000, 5000)}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Nil(t, result.References[0].AssetID)
	assert.Equal(t, []models.AssetReference{ref}, result.Unresolved)
}

func TestResolve_SizeAndDurationMatch(t *testing.T) {
	ref := models.AssetReference{
		ID:          "gone",
		Fingerprint: models.Fingerprint{FileSize: intPtr(1000), DurationMS: intPtr(0)},
	}
	// Zero duration is a real value and must participate in matching.
	assets := []models.Asset{withSizeDuration(asset("still", baseTime), 1000, 0)}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Equal(t, "still", *result.References[0].AssetID)
}

func TestResolve_CandidateMissingFieldDisqualified(t *testing.T) {
	ref := models.AssetReference{
		ID:          "gone",
		Fingerprint: models.Fingerprint{FileSize: intPtr(1000), DurationMS: intPtr(5000)},
	}
	// Candidate has a matching size but no duration at all.
	candidate := asset("partial", baseTime)
	candidate.FileSize = sql.NullInt64{Int64: 1000, Valid: true}
	assets := []models.Asset{candidate}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Len(t, result.Unresolved, 1)
}

func TestResolve_TieBreakEarliestCreated(t *testing.T) {
	ref := models.AssetReference{
		ID:          "gone",
		Fingerprint: models.Fingerprint{Hash: strPtr("dup")},
	}
	assets := []models.Asset{
		withHash(asset("later", baseTime.Add(time.Hour)), "dup"),
		withHash(asset("earlier", baseTime), "dup"),
	}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Equal(t, "earlier", *result.References[0].AssetID)
}

func TestResolve_TieBreakIDWhenCreatedEqual(t *testing.T) {
	ref := models.AssetReference{
		ID:          "gone",
		Fingerprint: models.Fingerprint{Hash: strPtr("dup")},
	}
	assets := []models.Asset{
		withHash(asset("bbb", baseTime), "dup"),
		withHash(asset("aaa", baseTime), "dup"),
	}

	result := reconcile.Resolve([]models.AssetReference{ref}, assets)
	assert.Equal(t, "aaa", *result.References[0].AssetID)
}

func TestResolve_UnresolvedKeptInOrder(t *testing.T) {
	refs := []models.AssetReference{
		{ID: "a1"},
		{ID: "a2"},
		{ID: "a3"},
	}
	assets := []models.Asset{asset("a2", baseTime)}

	result := reconcile.Resolve(refs, assets)
	assert.Len(t, result.References, 3)
	assert.Nil(t, result.References[0].AssetID)
	assert.Equal(t, "a2", *result.References[1].AssetID)
	assert.Nil(t, result.References[2].AssetID)

	// Unresolved references are surfaced for manual mapping, never dropped.
	assert.Equal(t, "a1", result.Unresolved[0].ID)
	assert.Equal(t, "a3", result.Unresolved[1].ID)
}
