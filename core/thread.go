package core

import (
	"fmt"
	"sync"
	"time"
)

// Role identifies which agent a thread belongs to. Each (app, user) pair owns
// one thread per role, so specialist histories never bleed into each other.
type Role string

// The fixed role set of the engine. Routing between them is owned by the
// orchestration controller, never by the agents themselves.
const (
	RoleOrchestrator   Role = "orchestrator"
	RoleStructuredData Role = "structured-data"
	RoleRetrieval      Role = "retrieval"
	RoleSynthesizer    Role = "synthesizer"
)

// ThreadKey uniquely addresses a thread. Two requests for the same key always
// resolve to the same thread for the lifetime of the process.
type ThreadKey struct {
	App    string `json:"app"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// String renders the key in app/user/role form for logging.
func (k ThreadKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.App, k.UserID, k.Role)
}

// Thread is a conversational container tracking mutable key/value state plus
// an ordered event history. It is safe for concurrent access.
//
// Contract:
//   - State mutations update the Updated timestamp
//   - Events returns a defensive copy to avoid external mutation
//   - ConversationHistory filters events to user/assistant/tool roles and
//     excludes partial streaming fragments
//   - Clone performs deep copies of maps/slices for safe divergence.
type Thread struct {
	Key     ThreadKey      `json:"key"`
	State   map[string]any `json:"state"`
	Log     []Event        `json:"events"`
	Created time.Time      `json:"created"`
	Updated time.Time      `json:"updated"`
	mu      sync.RWMutex
}

// NewThread creates an empty thread for the given key.
func NewThread(key ThreadKey) *Thread {
	now := time.Now()
	return &Thread{Key: key, State: map[string]any{}, Log: []Event{}, Created: now, Updated: now}
}

// GetState returns the value and existence flag for a state key.
func (t *Thread) GetState(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.State[key]
	return v, ok
}

// SetState sets a key/value pair in thread state updating the Updated timestamp.
func (t *Thread) SetState(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State[key] = value
	t.Updated = time.Now()
}

// StateSnapshot returns a defensive copy of the full state map.
func (t *Thread) StateSnapshot() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snapshot := make(map[string]any, len(t.State))
	for k, v := range t.State {
		snapshot[k] = v
	}
	return snapshot
}

// ApplyStateDelta merges the provided key/value pairs into State.
func (t *Thread) ApplyStateDelta(delta map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range delta {
		t.State[k] = v
	}
	t.Updated = time.Now()
}

// AddEvent appends an event to the history updating the Updated timestamp.
func (t *Thread) AddEvent(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Log = append(t.Log, ev)
	t.Updated = time.Now()
}

// Events returns a defensive copy of the full event slice.
func (t *Thread) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	events := make([]Event, len(t.Log))
	copy(events, t.Log)
	return events
}

// ConversationHistory returns filtered events suitable for providing
// conversational context to models (excludes partials and non-conversational roles).
func (t *Thread) ConversationHistory() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	allowed := map[string]bool{"user": true, "assistant": true, "tool": true}
	res := make([]Event, 0, len(t.Log))
	for _, ev := range t.Log {
		if ev.Content == nil || !allowed[ev.Content.Role] {
			continue
		}
		if ev.IsPartial() {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// Clone returns a deep copy of the thread safe for independent mutation.
func (t *Thread) Clone() *Thread {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clone := &Thread{Key: t.Key, State: make(map[string]any, len(t.State)), Log: make([]Event, len(t.Log)), Created: t.Created, Updated: t.Updated}
	for k, v := range t.State {
		clone.State[k] = v
	}
	copy(clone.Log, t.Log)
	return clone
}

// ThreadStore persists threads and their evolving state / event history.
// Implementations must be safe for concurrent use.
type ThreadStore interface {
	// GetOrCreate resolves the thread for key, creating it on first use.
	// Creation is idempotent: concurrent callers observe the same thread.
	GetOrCreate(key ThreadKey) (*Thread, error)
	// Get returns the thread for key or an error when it does not exist.
	Get(key ThreadKey) (*Thread, error)
	// AppendEvent appends an event to the thread's history.
	AppendEvent(key ThreadKey, event Event) error
	// ApplyDelta merges state mutations into the thread.
	ApplyDelta(key ThreadKey, delta map[string]any) error
}
