package services

import (
	"log"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"cutroom-backend/internal/models"
	"cutroom-backend/internal/supabase"
)

// SequenceService owns the operations that touch both the sequences table
// and the state blobs in storage: snapshot create/restore/delete, sequence
// copy, and sequence delete.
type SequenceService struct {
	dbClient       *supabase.DatabaseClient
	storageClient  *supabase.StorageClient
	realtimeClient *supabase.RealtimeClient
}

func NewSequenceService(dbClient *supabase.DatabaseClient, storageClient *supabase.StorageClient, realtimeClient *supabase.RealtimeClient) *SequenceService {
	return &SequenceService{
		dbClient:       dbClient,
		storageClient:  storageClient,
		realtimeClient: realtimeClient,
	}
}

func newSnapshotID() string {
	return ulid.Make().String()
}

// CreateSnapshot captures the sequence's current state under a user-supplied
// name. No lock is required: snapshot creation appends to the history, which
// is commutative across concurrent collaborators.
func (s *SequenceService) CreateSnapshot(sequenceID uuid.UUID, name string) (*models.Snapshot, error) {
	seq, err := s.dbClient.GetSequence(sequenceID)
	if err != nil {
		return nil, err
	}

	// Capture a copy of the live state so later edits to the sequence cannot
	// mutate the checkpoint.
	state := []byte("{}")
	if seq.StatePath.Valid {
		state, err = s.storageClient.DownloadState(seq.StatePath.String)
		if err != nil {
			return nil, err
		}
	}

	snapshot := &models.Snapshot{
		ID:         newSnapshotID(),
		SequenceID: seq.ID,
		Name:       name,
		DurationMS: seq.DurationMS,
	}
	snapshot.StatePath = supabase.SnapshotStatePath(seq.ProjectID, seq.ID, snapshot.ID)

	if err := s.storageClient.UploadState(snapshot.StatePath, state); err != nil {
		return nil, err
	}

	if err := s.dbClient.CreateSnapshot(snapshot); err != nil {
		// Roll back the orphaned blob; the row never landed.
		if delErr := s.storageClient.DeleteState(snapshot.StatePath); delErr != nil {
			log.Printf("failed to clean up snapshot blob %s: %v", snapshot.StatePath, delErr)
		}
		return nil, err
	}

	s.realtimeClient.PublishProjectEvent(seq.ProjectID, "snapshot_created",
		supabase.SnapshotCreatedPayload(seq.ID, snapshot.ID, snapshot.Name))
	return snapshot, nil
}

func (s *SequenceService) ListSnapshots(sequenceID uuid.UUID) ([]models.Snapshot, error) {
	if _, err := s.dbClient.GetSequence(sequenceID); err != nil {
		return nil, err
	}
	return s.dbClient.ListSnapshots(sequenceID)
}

// RestoreSnapshot overwrites the live sequence state with a checkpoint. It
// is destructive, so the caller must hold the sequence lock (a free lock or
// the caller's own lock both pass; another user's lock fails with
// ErrLockRequired). The snapshot history is append-only: restoring an old
// snapshot does not delete later ones.
func (s *SequenceService) RestoreSnapshot(sequenceID uuid.UUID, snapshotID, userID string) error {
	seq, err := s.dbClient.GetSequence(sequenceID)
	if err != nil {
		return err
	}
	if seq.LockedByOther(userID) {
		return supabase.ErrLockRequired
	}

	snapshot, err := s.dbClient.GetSnapshot(sequenceID, snapshotID)
	if err != nil {
		return err
	}

	state, err := s.storageClient.DownloadState(snapshot.StatePath)
	if err != nil {
		return err
	}

	livePath := supabase.SequenceStatePath(seq.ProjectID, seq.ID)
	if err := s.storageClient.UploadState(livePath, state); err != nil {
		return err
	}

	if err := s.dbClient.RestoreSequenceState(sequenceID, livePath, snapshot.DurationMS); err != nil {
		return err
	}

	s.realtimeClient.PublishProjectEvent(seq.ProjectID, "snapshot_restored",
		supabase.SnapshotRestoredPayload(seq.ID, snapshot.ID))
	return nil
}

// DeleteSnapshot is permanent. It requires no lock: it removes history and
// never mutates live sequence state.
func (s *SequenceService) DeleteSnapshot(sequenceID uuid.UUID, snapshotID string) error {
	snapshot, err := s.dbClient.GetSnapshot(sequenceID, snapshotID)
	if err != nil {
		return err
	}

	if err := s.dbClient.DeleteSnapshot(sequenceID, snapshotID); err != nil {
		return err
	}

	// Blob cleanup is best-effort; the row is gone either way.
	if err := s.storageClient.DeleteState(snapshot.StatePath); err != nil {
		log.Printf("failed to delete snapshot blob %s: %v", snapshot.StatePath, err)
	}
	return nil
}

// CopySequence duplicates a sequence, giving the copy its own state blob so
// the original and the copy can diverge.
func (s *SequenceService) CopySequence(sequenceID uuid.UUID, name string) (*models.Sequence, error) {
	source, err := s.dbClient.GetSequence(sequenceID)
	if err != nil {
		return nil, err
	}

	copied, err := s.dbClient.CopySequence(sequenceID, name)
	if err != nil {
		return nil, err
	}

	if source.StatePath.Valid {
		state, err := s.storageClient.DownloadState(source.StatePath.String)
		if err != nil {
			return nil, err
		}
		livePath := supabase.SequenceStatePath(copied.ProjectID, copied.ID)
		if err := s.storageClient.UploadState(livePath, state); err != nil {
			return nil, err
		}
		if err := s.dbClient.RestoreSequenceState(copied.ID, livePath, copied.DurationMS); err != nil {
			return nil, err
		}
		copied.StatePath.Valid = true
		copied.StatePath.String = livePath
	}

	return copied, nil
}

// DeleteSequence removes a sequence, its snapshots (DB cascade) and its
// state blobs. The default sequence is refused with ErrDefaultSequence.
func (s *SequenceService) DeleteSequence(sequenceID uuid.UUID) error {
	seq, err := s.dbClient.GetSequence(sequenceID)
	if err != nil {
		return err
	}

	if err := s.dbClient.DeleteSequence(sequenceID); err != nil {
		return err
	}

	if err := s.storageClient.DeleteSequenceStates(seq.ProjectID, seq.ID); err != nil {
		log.Printf("failed to delete state blobs for sequence %s: %v", seq.ID, err)
	}
	return nil
}
