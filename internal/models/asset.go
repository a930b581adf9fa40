package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Asset is a live media asset owned by the project. Rows are written by the
// upload/delete flows outside this service and mirrored from the asset
// service; this core only reads them.
type Asset struct {
	ID           string
	ProjectID    uuid.UUID
	Name         string
	Type         string
	FileSize     sql.NullInt64
	DurationMS   sql.NullInt64
	Hash         sql.NullString
	StoragePath  string
	ThumbnailURL sql.NullString
	CreatedAt    time.Time
}
