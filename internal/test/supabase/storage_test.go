package supabase_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"cutroom-backend/internal/supabase"
)

func TestSequenceStatePath(t *testing.T) {
	projectID := uuid.New()
	sequenceID := uuid.New()

	path := supabase.SequenceStatePath(projectID, sequenceID)
	assert.Equal(t, "projects/"+projectID.String()+"/sequences/"+sequenceID.String()+"/state.json", path)
}

func TestSnapshotStatePath(t *testing.T) {
	projectID := uuid.New()
	sequenceID := uuid.New()
	snapshotID := "01J0000000000000000000000"

	path := supabase.SnapshotStatePath(projectID, sequenceID, snapshotID)
	assert.Contains(t, path, "/snapshots/"+snapshotID+".json")

	// Snapshot blobs live under the sequence prefix, so deleting a sequence's
	// states removes its snapshot captures too.
	assert.Contains(t, path, "sequences/"+sequenceID.String()+"/")
}
