package conflict_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"cutroom-backend/internal/conflict"
	"cutroom-backend/internal/models"
	"cutroom-backend/internal/supabase"
)

// fakeStore is an in-memory SessionStore with the same token semantics as
// the real one: saves land only when the caller's version matches.
type fakeStore struct {
	mu        sync.Mutex
	document  json.RawMessage
	version   int64
	saveCalls int

	// beforeSave, when set, runs at the top of SaveSession outside the lock.
	// Lets a test hold one save in flight while another proceeds.
	beforeSave func()
}

func (f *fakeStore) GetSession(projectID uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.Session{ProjectID: projectID, Document: f.document, Version: f.version}, nil
}

func (f *fakeStore) SaveSession(projectID uuid.UUID, document json.RawMessage, version int64) (int64, error) {
	if f.beforeSave != nil {
		f.beforeSave()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if version != f.version {
		return 0, supabase.ErrVersionConflict
	}
	f.document = document
	f.version++
	return f.version, nil
}

func (f *fakeStore) ForceSaveSession(projectID uuid.UUID, document json.RawMessage) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.document = document
	f.version++
	return f.version, nil
}

func doc(s string) json.RawMessage { return json.RawMessage(s) }

func newFixture(serverDoc string, version int64) (*fakeStore, *conflict.Coordinator) {
	store := &fakeStore{document: doc(serverDoc), version: version}
	coordinator := conflict.NewCoordinator(store, uuid.New(), doc(serverDoc), version)
	return store, coordinator
}

func TestSave_CleanPath(t *testing.T) {
	store, coordinator := newFixture(`{"v":"server"}`, 1)

	state, err := coordinator.Save(doc(`{"v":"local"}`))
	assert.NoError(t, err)
	assert.False(t, state.IsConflicting)
	assert.Equal(t, int64(2), coordinator.Version())
	assert.Equal(t, doc(`{"v":"local"}`), store.document)
}

func TestSave_StaleTokenRaisesConflict(t *testing.T) {
	store, coordinator := newFixture(`{"v":"server"}`, 1)

	// Another collaborator saved in the meantime.
	store.ForceSaveSession(uuid.New(), doc(`{"v":"theirs"}`))

	state, err := coordinator.Save(doc(`{"v":"mine"}`))
	assert.NoError(t, err)
	assert.True(t, state.IsConflicting)
	assert.Equal(t, int64(2), state.ServerVersion)

	// Nothing was overwritten silently.
	assert.Equal(t, doc(`{"v":"theirs"}`), store.document)
}

func TestSave_ConflictDoesNotStack(t *testing.T) {
	store, coordinator := newFixture(`{"v":"server"}`, 1)
	store.ForceSaveSession(uuid.New(), doc(`{"v":"theirs"}`))

	_, err := coordinator.Save(doc(`{"v":"mine"}`))
	assert.NoError(t, err)
	callsAfterFirst := store.saveCalls

	// A second save while Conflicting must not attempt another store write
	// or raise a second conflict; the standing one takes precedence.
	state, err := coordinator.Save(doc(`{"v":"mine-edited"}`))
	assert.NoError(t, err)
	assert.True(t, state.IsConflicting)
	assert.Equal(t, callsAfterFirst, store.saveCalls)

	// The latest local document is still what a later Force acts on.
	assert.Equal(t, doc(`{"v":"mine-edited"}`), coordinator.Document())
}

func TestSave_LaterSaveSupersedesInFlightSave(t *testing.T) {
	store, coordinator := newFixture(`{"v":"server"}`, 1)

	aEntered := make(chan struct{})
	aRelease := make(chan struct{})
	var hookMu sync.Mutex
	hooked := false
	store.beforeSave = func() {
		hookMu.Lock()
		first := !hooked
		hooked = true
		hookMu.Unlock()
		if first {
			close(aEntered)
			<-aRelease
		}
	}

	// Save A enters the store and parks there.
	aDone := make(chan conflict.State, 1)
	go func() {
		state, err := coordinator.Save(doc(`{"v":"A"}`))
		assert.NoError(t, err)
		aDone <- state
	}()
	<-aEntered

	// Save B is issued while A is still in flight. Both carry the same
	// version token, so B lands and bumps the store past A's token.
	stateB, err := coordinator.Save(doc(`{"v":"B"}`))
	assert.NoError(t, err)
	assert.False(t, stateB.IsConflicting)
	assert.Equal(t, doc(`{"v":"B"}`), store.document)

	// A's late return hits a stale token, but B's outcome governs: no
	// conflict is raised and B's document stays in place.
	close(aRelease)
	stateA := <-aDone
	assert.False(t, stateA.IsConflicting)
	assert.False(t, coordinator.State().IsConflicting)
	assert.Equal(t, doc(`{"v":"B"}`), coordinator.Document())
	assert.Equal(t, doc(`{"v":"B"}`), store.document)
	assert.Equal(t, int64(2), coordinator.Version())
}

func TestReload_ServerWins(t *testing.T) {
	store, coordinator := newFixture(`{"v":"server"}`, 1)
	store.ForceSaveSession(uuid.New(), doc(`{"v":"theirs"}`))

	_, err := coordinator.Save(doc(`{"v":"mine"}`))
	assert.NoError(t, err)

	reloaded, err := coordinator.Reload()
	assert.NoError(t, err)
	assert.Equal(t, doc(`{"v":"theirs"}`), reloaded)
	assert.False(t, coordinator.State().IsConflicting)
	assert.Equal(t, store.version, coordinator.Version())

	// Back to Clean: the next save lands.
	state, err := coordinator.Save(doc(`{"v":"after-reload"}`))
	assert.NoError(t, err)
	assert.False(t, state.IsConflicting)
	assert.Equal(t, doc(`{"v":"after-reload"}`), store.document)
}

func TestForce_LocalWins(t *testing.T) {
	store, coordinator := newFixture(`{"v":"server"}`, 1)
	store.ForceSaveSession(uuid.New(), doc(`{"v":"theirs"}`))

	_, err := coordinator.Save(doc(`{"v":"mine"}`))
	assert.NoError(t, err)

	newVersion, err := coordinator.Force()
	assert.NoError(t, err)
	assert.False(t, coordinator.State().IsConflicting)
	assert.Equal(t, newVersion, coordinator.Version())

	// Server state overwritten with local state regardless of theirs.
	assert.Equal(t, doc(`{"v":"mine"}`), store.document)
}
