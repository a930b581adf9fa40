package supabase

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

type RealtimeClient struct {
	client *supabase.Client
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
	}
}

func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	// Note: Supabase Go client doesn't have direct Realtime publish.
	// Database updates on sessions/sequences/snapshots trigger Realtime
	// automatically; this is a placeholder for explicit event publishing.
	return nil
}

func (r *RealtimeClient) PublishProjectEvent(projectID uuid.UUID, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("project:%s", projectID.String())
	return r.PublishEvent(channel, event, payload)
}

// Event payloads
func SequenceLockedPayload(sequenceID uuid.UUID, userID, holderName string) map[string]interface{} {
	return map[string]interface{}{
		"sequence_id":      sequenceID.String(),
		"locked_by":        userID,
		"lock_holder_name": holderName,
	}
}

func SequenceUnlockedPayload(sequenceID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"sequence_id": sequenceID.String(),
		"locked_by":   nil,
	}
}

func SnapshotCreatedPayload(sequenceID uuid.UUID, snapshotID, name string) map[string]interface{} {
	return map[string]interface{}{
		"sequence_id": sequenceID.String(),
		"snapshot_id": snapshotID,
		"name":        name,
	}
}

func SnapshotRestoredPayload(sequenceID uuid.UUID, snapshotID string) map[string]interface{} {
	return map[string]interface{}{
		"sequence_id": sequenceID.String(),
		"snapshot_id": snapshotID,
	}
}

func SessionSavedPayload(projectID uuid.UUID, version int64) map[string]interface{} {
	return map[string]interface{}{
		"project_id": projectID.String(),
		"version":    version,
	}
}

func SessionConflictPayload(projectID uuid.UUID, serverVersion int64) map[string]interface{} {
	return map[string]interface{}{
		"project_id":     projectID.String(),
		"conflict":       true,
		"server_version": serverVersion,
	}
}
