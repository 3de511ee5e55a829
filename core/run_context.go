package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/bankdesk/bankdesk/logging"
)

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Role places the agent in the fixed role set.
type AgentInfo struct {
	Name string
	Role Role
}

// RunContext carries execution state & helpers for one agent invocation.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (thread Key, InvocationID, Agent info)
//   - Input user Content
//   - Emission / resumption coordination channels
//   - Backing stores (thread, memory) for persistence concerns
//   - A working Thread snapshot and the pending StateDelta to commit
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta or EmitEvent applies them.
type RunContext struct {
	Context       context.Context
	Key           ThreadKey
	InvocationID  string
	Agent         AgentInfo
	UserContent   Content
	MaxModelCalls int
	Emit          chan<- Event
	Resume        <-chan struct{}
	ThreadStore   ThreadStore
	MemoryStore   MemoryStore
	Limiter       *CallLimiter
	Thread        *Thread
	StateDelta    map[string]any

	*loggerAdapter
}

// NewRunContext constructs a RunContext with an empty state delta.
func NewRunContext(
	ctx context.Context,
	key ThreadKey,
	invocationID string,
	agent AgentInfo,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	resume <-chan struct{},
	thread *Thread,
	threadStore ThreadStore,
	memoryStore MemoryStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		Key:           key,
		InvocationID:  invocationID,
		Agent:         agent,
		UserContent:   userContent,
		MaxModelCalls: maxModelCalls,
		Emit:          emit,
		Resume:        resume,
		Thread:        thread,
		ThreadStore:   threadStore,
		MemoryStore:   memoryStore,
		Limiter:       NewCallLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted thread value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Thread != nil {
		return rc.Thread.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// SearchMemory queries the MemoryStore for content recorded by any role-thread
// of the same (app, user) pair.
func (rc *RunContext) SearchMemory(q string, limit int) ([]SearchResult, error) {
	if rc.MemoryStore == nil {
		return []SearchResult{}, nil
	}

	return rc.MemoryStore.Search(rc.Key.App, rc.Key.UserID, q, limit)
}

// RefreshThread reloads the thread snapshot from the ThreadStore.
func (rc *RunContext) RefreshThread() error {
	if rc.ThreadStore == nil {
		return fmt.Errorf("thread store not configured")
	}

	t, err := rc.ThreadStore.Get(rc.Key)
	if err != nil {
		return err
	}

	rc.Thread = t

	return nil
}

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}

	if rc.ThreadStore == nil {
		return fmt.Errorf("thread store not configured")
	}

	if err := rc.ThreadStore.ApplyDelta(rc.Key, rc.StateDelta); err != nil {
		return err
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// ThreadHistory returns all historical events for the thread.
func (rc *RunContext) ThreadHistory() []Event {
	if rc.Thread == nil {
		return []Event{}
	}

	return rc.Thread.Events()
}

// EmitEvent merges the pending StateDelta into the event and emits it. The
// delta buffer is cleared only after a successful send.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, rc.StateDelta)
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// WaitForResume blocks until the executor has persisted the previously emitted
// event, or until context cancellation.
func (rc *RunContext) WaitForResume() error {
	if rc.Resume == nil {
		return nil
	}

	select {
	case <-rc.Resume:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	}
}
