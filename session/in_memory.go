package session

import (
	"errors"
	"sync"

	"github.com/bankdesk/bankdesk/core"
)

// ErrThreadNotFound is returned by Get and the mutation methods when no
// thread exists for the requested key.
var ErrThreadNotFound = errors.New("thread not found")

// StateKeyUserID is the state slot seeded into every new thread so agent
// instructions and tools can resolve the owning user without re-deriving it
// from the key.
const StateKeyUserID = "user_id"

// InMemoryStore is a volatile ThreadStore implementation keeping threads in a
// process local map keyed by core.ThreadKey. It is safe for concurrent access.
// Each returned thread is cloned to prevent external mutation of internal
// state; mutations go through AppendEvent / ApplyDelta.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[core.ThreadKey]*core.Thread
}

// NewInMemoryStore constructs an empty in-memory thread store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[core.ThreadKey]*core.Thread)}
}

// GetOrCreate resolves the thread for key, creating it on first use. Creation
// is idempotent: calling it twice with the same key never resets history or
// state. New threads are seeded with the owning user id.
func (s *InMemoryStore) GetOrCreate(key core.ThreadKey) (*core.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[key]; ok {
		return t.Clone(), nil
	}
	t := core.NewThread(key)
	t.SetState(StateKeyUserID, key.UserID)
	s.threads[key] = t
	return t.Clone(), nil
}

// Get returns a clone of an existing thread or ErrThreadNotFound.
func (s *InMemoryStore) Get(key core.ThreadKey) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[key]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return t.Clone(), nil
}

// AppendEvent adds an event to an existing thread's history.
func (s *InMemoryStore) AppendEvent(key core.ThreadKey, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[key]
	if !ok {
		return ErrThreadNotFound
	}
	t.AddEvent(ev)
	return nil
}

// ApplyDelta merges a key/value delta into the thread state.
func (s *InMemoryStore) ApplyDelta(key core.ThreadKey, delta map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[key]
	if !ok {
		return ErrThreadNotFound
	}
	t.ApplyStateDelta(delta)
	return nil
}
