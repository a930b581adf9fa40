package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Sequence struct {
	ID             uuid.UUID
	ProjectID      uuid.UUID
	Name           string
	DurationMS     int64
	IsDefault      bool
	ThumbnailURL   sql.NullString
	StatePath      sql.NullString
	LockedBy       sql.NullString
	LockHolderName sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockedByOther reports whether the sequence lock is held by someone other
// than userID. An unlocked sequence is never "locked by other"; restore is
// allowed when the lock is free or held by the caller.
func (s *Sequence) LockedByOther(userID string) bool {
	return s.LockedBy.Valid && s.LockedBy.String != userID
}

// Snapshot is an immutable named checkpoint of a sequence's state.
// The id is a ULID, so id order is creation order.
type Snapshot struct {
	ID         string
	SequenceID uuid.UUID
	Name       string
	DurationMS int64
	StatePath  string
	CreatedAt  time.Time
}
