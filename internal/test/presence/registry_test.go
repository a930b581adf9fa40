package presence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cutroom-backend/internal/models"
	"cutroom-backend/internal/presence"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func entry(userID string, age time.Duration) models.PresenceEntry {
	return models.PresenceEntry{
		UserID:      userID,
		DisplayName: userID,
		LastSeen:    now.Add(-age),
	}
}

func TestActiveEntries_ExcludesSelf(t *testing.T) {
	entries := []models.PresenceEntry{
		entry("me", 0),
		entry("other", 0),
	}

	active := presence.ActiveEntries(entries, "me", now)
	assert.Len(t, active, 1)
	assert.Equal(t, "other", active[0].UserID)
}

func TestActiveEntries_StalenessWindow(t *testing.T) {
	// One missed heartbeat is tolerated: 59s old is active, 61s is gone.
	entries := []models.PresenceEntry{
		entry("fresh", 59*time.Second),
		entry("stale", 61*time.Second),
	}

	active := presence.ActiveEntries(entries, "me", now)
	assert.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].UserID)
}

func TestActiveEntries_ExactThresholdIsActive(t *testing.T) {
	entries := []models.PresenceEntry{entry("edge", presence.StalenessThreshold)}

	active := presence.ActiveEntries(entries, "me", now)
	assert.Len(t, active, 1)
}

func TestActiveEntries_EmptySet(t *testing.T) {
	active := presence.ActiveEntries(nil, "me", now)
	assert.Empty(t, active)
}

func TestStalenessThresholdIsTwoHeartbeats(t *testing.T) {
	assert.Equal(t, 2*presence.HeartbeatInterval, presence.StalenessThreshold)
}
