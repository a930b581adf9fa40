package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaVersionCurrent is the document shape this service reads and writes.
// Older shapes are upgraded on read by internal/schema.
const SchemaVersionCurrent = "1.0"

// Fingerprint is the content identity recorded for an asset at save time.
// Fields are pointers because null means "unknown" and is distinct from a
// real zero: duration_ms = 0 is a valid value for still images.
type Fingerprint struct {
	Hash       *string `json:"hash"`
	FileSize   *int64  `json:"file_size"`
	DurationMS *int64  `json:"duration_ms"`
}

type ReferenceMetadata struct {
	Codec  *string `json:"codec"`
	Width  *int64  `json:"width"`
	Height *int64  `json:"height"`
}

// AssetReference is a session's recorded belief about an asset, not a live
// pointer. The live asset it named may have been re-uploaded under a new id;
// the fingerprint is what lets us find it again.
type AssetReference struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Fingerprint Fingerprint        `json:"fingerprint"`
	Metadata    *ReferenceMetadata `json:"metadata,omitempty"`
}

type Session struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Document  json.RawMessage
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
