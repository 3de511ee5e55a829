package testutil

import (
	"github.com/bankdesk/bankdesk/core"
)

// ThreadBuilder helps construct threads with fluent chaining for tests.
// Example:
//
//	th := NewThreadBuilder(key).State("user_id", "u1").UserMessage("inv-1", "hi").Build()
type ThreadBuilder struct {
	key    core.ThreadKey
	state  map[string]any
	events []core.Event
}

// NewThreadBuilder creates a builder for a thread addressed by key.
// Use chainable methods (State, Event, UserMessage, AssistantMessage) then
// call Build.
func NewThreadBuilder(key core.ThreadKey) *ThreadBuilder {
	return &ThreadBuilder{key: key, state: map[string]any{}}
}

// State sets or overwrites a state key/value pair on the resulting thread (chainable).
func (b *ThreadBuilder) State(key string, val any) *ThreadBuilder {
	b.state[key] = val
	return b
}

// Event appends a single event to the thread history (chainable).
func (b *ThreadBuilder) Event(ev core.Event) *ThreadBuilder {
	b.events = append(b.events, ev)
	return b
}

// Events appends multiple events to the thread history (chainable).
func (b *ThreadBuilder) Events(evs ...core.Event) *ThreadBuilder {
	b.events = append(b.events, evs...)
	return b
}

// UserMessage appends a user text event bound to invocationID (chainable).
func (b *ThreadBuilder) UserMessage(invocationID, text string) *ThreadBuilder {
	return b.Event(core.NewUserMessageEvent(invocationID, text))
}

// AssistantMessage appends an assistant text event authored by author (chainable).
func (b *ThreadBuilder) AssistantMessage(author, text string) *ThreadBuilder {
	return b.Event(core.NewMessageEvent(author, text))
}

// Build returns a *core.Thread with pre-populated state and events.
func (b *ThreadBuilder) Build() *core.Thread {
	th := core.NewThread(b.key)
	for k, v := range b.state {
		th.SetState(k, v)
	}
	for _, ev := range b.events {
		th.AddEvent(ev)
	}
	return th
}
