// Package schema upgrades persisted session documents to the current shape.
//
// Documents are migrated forward only, one version at a time, through an
// explicit ladder of steps. The editor-state payload inside the document is
// opaque and passes through untouched; only schema_version and
// asset_references are interpreted here.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"cutroom-backend/internal/models"
)

const (
	// VersionLegacy is the oldest shape still accepted on read. Documents
	// with no schema_version at all are assumed to be this old.
	VersionLegacy = "0.9"

	VersionCurrent = models.SchemaVersionCurrent
)

var (
	ErrMissingReferences = errors.New("session document has no asset_references")
	ErrUnknownVersion    = errors.New("unknown schema version")
)

type Result struct {
	Data     map[string]interface{}
	Migrated bool
	Warnings []string
}

type step struct {
	from  string
	to    string
	apply func(doc map[string]interface{}) error
}

// ladder is the ordered list of migration steps. Every persisted version has
// exactly one step to its successor; steps are never skipped or reordered.
// New versions append here.
var ladder = []step{
	{from: "0.9", to: "1.0", apply: nestFingerprints},
}

// Migrate upgrades a raw session document to VersionCurrent.
//
// The input map is never mutated: steps run against a deep copy, so a failed
// migration cannot leave the caller holding a half-migrated document. A
// document already at the current version is returned as-is with
// Migrated=false.
func Migrate(raw map[string]interface{}) (*Result, error) {
	version := VersionLegacy
	if v, ok := raw["schema_version"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: schema_version is not a string", ErrUnknownVersion)
		}
		version = s
	}

	if _, ok := raw["asset_references"].([]interface{}); !ok {
		return nil, ErrMissingReferences
	}

	if version == VersionCurrent {
		return &Result{Data: raw, Migrated: false}, nil
	}

	start := -1
	for i, s := range ladder {
		if s.from == version {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}

	doc, err := deepCopy(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to copy document: %w", err)
	}

	result := &Result{Data: doc, Migrated: true}
	for _, s := range ladder[start:] {
		if err := s.apply(doc); err != nil {
			return nil, fmt.Errorf("migration %s -> %s: %w", s.from, s.to, err)
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("session upgraded from schema %s to %s; some asset references may require manual reattachment", s.from, s.to))
	}
	doc["schema_version"] = VersionCurrent

	return result, nil
}

// MigrateRaw is Migrate over the stored JSON bytes.
func MigrateRaw(raw json.RawMessage) (*Result, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse session document: %w", err)
	}
	return Migrate(doc)
}

// nestFingerprints is the 0.9 -> 1.0 step: the flat file_size/duration_ms
// scalars on each asset reference move into a nested fingerprint object.
//
// Idempotent per element: a reference that already carries a fingerprint
// (a partially migrated or hand-edited document) passes through unmodified,
// even when it sits next to legacy-shape references in the same array.
func nestFingerprints(doc map[string]interface{}) error {
	refs := doc["asset_references"].([]interface{})
	for i, r := range refs {
		ref, ok := r.(map[string]interface{})
		if !ok {
			return fmt.Errorf("asset reference %d is not an object", i)
		}
		if _, done := ref["fingerprint"]; done {
			continue
		}

		// Missing scalars become null. A present 0 stays 0: zero-duration
		// media is real, "unknown duration" is null.
		fingerprint := map[string]interface{}{
			"hash":        nil, // hashes did not exist before 1.0
			"file_size":   nil,
			"duration_ms": nil,
		}
		if v, ok := ref["file_size"]; ok {
			fingerprint["file_size"] = v
		}
		if v, ok := ref["duration_ms"]; ok {
			fingerprint["duration_ms"] = v
		}
		delete(ref, "file_size")
		delete(ref, "duration_ms")
		ref["fingerprint"] = fingerprint
	}
	return nil
}

func deepCopy(doc map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
