// Package conflict implements lost-update detection on session save and the
// two-way resolution protocol: reload (server wins) or force (local wins).
// No partial merge is ever attempted; conflicts are all-or-nothing at the
// whole-document granularity.
package conflict

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"cutroom-backend/internal/models"
	"cutroom-backend/internal/supabase"
)

// SessionStore is the narrow persistence surface the coordinator needs.
// *supabase.DatabaseClient satisfies it.
type SessionStore interface {
	GetSession(projectID uuid.UUID) (*models.Session, error)
	SaveSession(projectID uuid.UUID, document json.RawMessage, version int64) (int64, error)
	ForceSaveSession(projectID uuid.UUID, document json.RawMessage) (int64, error)
}

// State is the client-visible conflict state. Ephemeral: it exists only
// while a conflict is unresolved.
type State struct {
	IsConflicting bool  `json:"isConflicting"`
	ServerVersion int64 `json:"server_version,omitempty"`
}

// Coordinator runs the save state machine for one project's session:
//
//	Clean -> (save with stale token) -> Conflicting -> (reload | force) -> Clean
//
// No other transitions are valid. A second conflicting save while already
// Conflicting does not stack: the standing conflict takes precedence and the
// new local document simply becomes the pending state the resolution acts on.
type Coordinator struct {
	store     SessionStore
	projectID uuid.UUID

	mu       sync.Mutex
	document json.RawMessage
	version  int64
	saveGen  uint64
	state    State
}

func NewCoordinator(store SessionStore, projectID uuid.UUID, document json.RawMessage, version int64) *Coordinator {
	return &Coordinator{
		store:     store,
		projectID: projectID,
		document:  document,
		version:   version,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Document() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.document
}

func (c *Coordinator) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Save attempts to persist document with the last observed version token.
// It returns the conflict state after the attempt: conflicting means the
// save did not land and the user must resolve via Reload or Force.
//
// A save issued while an older one is still in flight supersedes it: only
// the latest attempt's outcome is applied.
func (c *Coordinator) Save(document json.RawMessage) (State, error) {
	c.mu.Lock()
	c.document = document
	if c.state.IsConflicting {
		// Existing unresolved conflict takes precedence; don't try to save
		// over it and don't raise a second one.
		state := c.state
		c.mu.Unlock()
		return state, nil
	}
	c.saveGen++
	gen := c.saveGen
	version := c.version
	c.mu.Unlock()

	newVersion, err := c.store.SaveSession(c.projectID, document, version)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.saveGen {
		// Superseded by a newer attempt; its outcome governs.
		return c.state, nil
	}

	if errors.Is(err, supabase.ErrVersionConflict) {
		serverVersion := version
		if session, getErr := c.store.GetSession(c.projectID); getErr == nil {
			serverVersion = session.Version
		}
		c.state = State{IsConflicting: true, ServerVersion: serverVersion}
		return c.state, nil
	}
	if err != nil {
		return c.state, fmt.Errorf("failed to save session: %w", err)
	}

	c.version = newVersion
	c.state = State{}
	return c.state, nil
}

// Reload resolves a conflict by discarding local unsaved changes: local state
// becomes the server's current document and version, and the conflict clears.
func (c *Coordinator) Reload() (json.RawMessage, error) {
	session, err := c.store.GetSession(c.projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.document = session.Document
	c.version = session.Version
	c.state = State{}
	return c.document, nil
}

// Force resolves a conflict by overwriting the server with local state,
// regardless of intervening changes, and clears the conflict.
func (c *Coordinator) Force() (int64, error) {
	c.mu.Lock()
	document := c.document
	c.mu.Unlock()

	newVersion, err := c.store.ForceSaveSession(c.projectID, document)
	if err != nil {
		return 0, fmt.Errorf("failed to force-save session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = newVersion
	c.state = State{}
	return newVersion, nil
}
