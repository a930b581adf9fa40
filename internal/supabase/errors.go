package supabase

import "errors"

// Sentinel errors. Callers use errors.Is() instead of string matching.
// Handlers map these onto status codes: ErrNameTaken and ErrLockHeld to 409,
// ErrDefaultSequence and ErrLockRequired to 403, ErrVersionConflict to the
// conflict response on the session save path.
var (
	ErrNotFound        = errors.New("not found")
	ErrNameTaken       = errors.New("name already exists")
	ErrDefaultSequence = errors.New("the default sequence cannot be deleted")
	ErrLockRequired    = errors.New("sequence is locked by another user")
	ErrLockHeld        = errors.New("sequence lock is held by another user")
	ErrVersionConflict = errors.New("session was modified by another user")
)
