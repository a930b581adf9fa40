package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"cutroom-backend/internal/schema"
)

func parseDoc(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	err := json.Unmarshal([]byte(raw), &doc)
	assert.NoError(t, err)
	return doc
}

func reference(t *testing.T, result *schema.Result, i int) map[string]interface{} {
	t.Helper()
	refs := result.Data["asset_references"].([]interface{})
	return refs[i].(map[string]interface{})
}

func TestMigrate_LegacyDocumentMissingVersion(t *testing.T) {
	doc := parseDoc(t, `{
		"asset_references": [
			{"id": "a1", "name": "clip.mp4", "type": "video", "file_size": 12345}
		]
	}`)

	result, err := schema.Migrate(doc)
	assert.NoError(t, err)
	assert.True(t, result.Migrated)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, "1.0", result.Data["schema_version"])

	fp := reference(t, result, 0)["fingerprint"].(map[string]interface{})
	assert.Nil(t, fp["hash"])
	assert.EqualValues(t, 12345, fp["file_size"])
	assert.Nil(t, fp["duration_ms"])

	// Flat scalars moved, not duplicated.
	_, hasFlat := reference(t, result, 0)["file_size"]
	assert.False(t, hasFlat)
}

func TestMigrate_ZeroDurationStaysZero(t *testing.T) {
	doc := parseDoc(t, `{
		"asset_references": [
			{"id": "a1", "name": "still.png", "type": "image", "file_size": 900, "duration_ms": 0}
		]
	}`)

	result, err := schema.Migrate(doc)
	assert.NoError(t, err)

	// 0 is a real value for zero-duration media, never coerced to null.
	fp := reference(t, result, 0)["fingerprint"].(map[string]interface{})
	assert.EqualValues(t, 0, fp["duration_ms"])
}

func TestMigrate_CurrentVersionIsNoOp(t *testing.T) {
	raw := `{
		"schema_version": "1.0",
		"asset_references": [
			{"id": "a1", "name": "clip.mp4", "type": "video",
			 "fingerprint": {"hash": "abc", "file_size": 1, "duration_ms": 2}}
		],
		"timeline": {"tracks": [1, 2, 3]}
	}`
	doc := parseDoc(t, raw)

	result, err := schema.Migrate(doc)
	assert.NoError(t, err)
	assert.False(t, result.Migrated)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, doc, result.Data)
}

func TestMigrate_Idempotent(t *testing.T) {
	doc := parseDoc(t, `{
		"asset_references": [
			{"id": "a1", "name": "clip.mp4", "type": "video", "file_size": 12345}
		]
	}`)

	first, err := schema.Migrate(doc)
	assert.NoError(t, err)

	second, err := schema.Migrate(first.Data)
	assert.NoError(t, err)
	assert.False(t, second.Migrated)
	assert.Equal(t, first.Data, second.Data)
}

func TestMigrate_MixedShapeArray(t *testing.T) {
	// A partially migrated or hand-edited document: one reference already in
	// the new shape, one still legacy.
	doc := parseDoc(t, `{
		"schema_version": "0.9",
		"asset_references": [
			{"id": "new", "name": "a.mp4", "type": "video",
			 "fingerprint": {"hash": "deadbeef", "file_size": 5, "duration_ms": 6}},
			{"id": "old", "name": "b.mp4", "type": "video", "file_size": 7}
		]
	}`)

	result, err := schema.Migrate(doc)
	assert.NoError(t, err)
	assert.True(t, result.Migrated)

	newRef := reference(t, result, 0)["fingerprint"].(map[string]interface{})
	assert.Equal(t, "deadbeef", newRef["hash"])
	assert.EqualValues(t, 5, newRef["file_size"])

	oldRef := reference(t, result, 1)["fingerprint"].(map[string]interface{})
	assert.Nil(t, oldRef["hash"])
	assert.EqualValues(t, 7, oldRef["file_size"])
	assert.Nil(t, oldRef["duration_ms"])
}

func TestMigrate_InputNotMutated(t *testing.T) {
	doc := parseDoc(t, `{
		"asset_references": [
			{"id": "a1", "name": "clip.mp4", "type": "video", "file_size": 12345}
		]
	}`)

	_, err := schema.Migrate(doc)
	assert.NoError(t, err)

	ref := doc["asset_references"].([]interface{})[0].(map[string]interface{})
	_, hasFingerprint := ref["fingerprint"]
	assert.False(t, hasFingerprint)
	assert.EqualValues(t, 12345, ref["file_size"])
}

func TestMigrate_MissingReferencesIsFatal(t *testing.T) {
	doc := parseDoc(t, `{"schema_version": "0.9", "timeline": {}}`)

	result, err := schema.Migrate(doc)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, schema.ErrMissingReferences)
}

func TestMigrate_UnknownFutureVersionIsFatal(t *testing.T) {
	doc := parseDoc(t, `{"schema_version": "2.0", "asset_references": []}`)

	result, err := schema.Migrate(doc)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, schema.ErrUnknownVersion)
}

func TestMigrateRaw_Scenario(t *testing.T) {
	raw := []byte(`{"asset_references":[{"id":"a1","name":"clip.mp4","type":"video","file_size":12345}]}`)

	result, err := schema.MigrateRaw(raw)
	assert.NoError(t, err)
	assert.True(t, result.Migrated)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, "1.0", result.Data["schema_version"])

	fp := reference(t, result, 0)["fingerprint"].(map[string]interface{})
	assert.Nil(t, fp["hash"])
	assert.EqualValues(t, 12345, fp["file_size"])
	assert.Nil(t, fp["duration_ms"])
}
