// Package presence tracks which users are actively viewing or editing a
// project. Each client heartbeats its own entry into a redis hash; a pub/sub
// channel per project announces changes, and subscribers recompute the active
// set from the full entry set on every event.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cutroom-backend/internal/models"
)

const (
	// HeartbeatInterval is how often a live client refreshes its entry.
	HeartbeatInterval = 30 * time.Second

	// StalenessThreshold is two heartbeat intervals: one missed heartbeat is
	// tolerated before a user is treated as gone.
	StalenessThreshold = 2 * HeartbeatInterval

	// hashTTL bounds how long an abandoned project's hash lingers in redis.
	// It does not make staleness filtering timer-driven; see Subscribe.
	hashTTL = 24 * time.Hour
)

type Registry struct {
	rdb *redis.Client
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

func hashKey(projectID uuid.UUID) string {
	return "presence:" + projectID.String()
}

func channelKey(projectID uuid.UUID) string {
	return "presence:changed:" + projectID.String()
}

// Heartbeat upserts the user's entry with a server-assigned lastSeen and
// notifies subscribers. One entry per (project, user); every heartbeat
// overwrites the previous one.
func (r *Registry) Heartbeat(ctx context.Context, projectID uuid.UUID, entry models.PresenceEntry) error {
	entry.LastSeen = time.Now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal presence entry: %w", err)
	}

	key := hashKey(projectID)
	if err := r.rdb.HSet(ctx, key, entry.UserID, data).Err(); err != nil {
		return fmt.Errorf("failed to write presence entry: %w", err)
	}
	if err := r.rdb.Expire(ctx, key, hashTTL).Err(); err != nil {
		log.Printf("presence: failed to refresh hash TTL for %s: %v", projectID, err)
	}

	if err := r.rdb.Publish(ctx, channelKey(projectID), entry.UserID).Err(); err != nil {
		return fmt.Errorf("failed to publish presence change: %w", err)
	}

	return nil
}

// Leave removes the caller's entry on clean shutdown. Best-effort: absence
// from the read side is cosmetic, so failures are logged and swallowed. A
// crashed client never reaches this path and ages out via staleness instead.
func (r *Registry) Leave(ctx context.Context, projectID uuid.UUID, userID string) {
	if err := r.rdb.HDel(ctx, hashKey(projectID), userID).Err(); err != nil {
		log.Printf("presence: failed to remove entry for %s: %v", userID, err)
		return
	}
	if err := r.rdb.Publish(ctx, channelKey(projectID), userID).Err(); err != nil {
		log.Printf("presence: failed to publish leave for %s: %v", userID, err)
	}
}

// Entries returns every presence entry for the project, stale ones included.
func (r *Registry) Entries(ctx context.Context, projectID uuid.UUID) ([]models.PresenceEntry, error) {
	raw, err := r.rdb.HGetAll(ctx, hashKey(projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presence entries: %w", err)
	}

	entries := make([]models.PresenceEntry, 0, len(raw))
	for userID, data := range raw {
		var entry models.PresenceEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			log.Printf("presence: dropping unreadable entry for %s: %v", userID, err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Subscribe delivers the full entry set once immediately and again after
// every change to any entry in the project. The channel closes when ctx is
// cancelled; no event is delivered after that.
//
// Staleness is only re-evaluated when an event fires: if no other client's
// presence changes, a crashed client's stale entry stays visible past the
// threshold until the next unrelated update. Accepted imprecision, not a
// correctness guarantee.
func (r *Registry) Subscribe(ctx context.Context, projectID uuid.UUID) <-chan []models.PresenceEntry {
	out := make(chan []models.PresenceEntry, 1)
	pubsub := r.rdb.Subscribe(ctx, channelKey(projectID))

	emit := func() {
		entries, err := r.Entries(ctx, projectID)
		if err != nil {
			log.Printf("presence: failed to read entries for %s: %v", projectID, err)
			return
		}
		select {
		case out <- entries:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(out)
		defer pubsub.Close()

		emit()

		events := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				emit()
			}
		}
	}()

	return out
}

// RunHeartbeat beats immediately and then every HeartbeatInterval until ctx
// is cancelled. Cancellation is deterministic: no heartbeat fires after it.
// A final Leave is attempted on the way out.
func (r *Registry) RunHeartbeat(ctx context.Context, projectID uuid.UUID, entry models.PresenceEntry) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	if err := r.Heartbeat(ctx, projectID, entry); err != nil {
		log.Printf("presence: heartbeat failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			// Teardown cleanup uses a fresh context: ctx is already dead.
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.Leave(cleanupCtx, projectID, entry.UserID)
			cancel()
			return
		case <-ticker.C:
			if err := r.Heartbeat(ctx, projectID, entry); err != nil {
				log.Printf("presence: heartbeat failed: %v", err)
			}
		}
	}
}

// ActiveEntries computes the active subset: everyone except the caller and
// except entries whose lastSeen is older than StalenessThreshold. Pure
// function of (entries, self, now) so each recomputation starts from scratch.
func ActiveEntries(entries []models.PresenceEntry, selfID string, now time.Time) []models.PresenceEntry {
	active := make([]models.PresenceEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.UserID == selfID {
			continue
		}
		if now.Sub(entry.LastSeen) > StalenessThreshold {
			continue
		}
		active = append(active, entry)
	}
	return active
}
