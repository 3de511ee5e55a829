package session

import (
	"errors"
	"testing"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/internal/testutil"
)

// Interface compliance (compile-time assertion)
var _ core.ThreadStore = (*InMemoryStore)(nil)

func key(role core.Role) core.ThreadKey {
	return core.ThreadKey{App: "bankdesk", UserID: "u1", Role: role}
}

func TestInMemoryStore_GetOrCreateIsIdempotent(t *testing.T) {
	s := NewInMemoryStore()
	k := key(core.RoleOrchestrator)

	first, err := s.GetOrCreate(k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := first.GetState(StateKeyUserID); !ok || v != "u1" {
		t.Fatalf("expected seeded user_id, got %#v", v)
	}

	if err := s.AppendEvent(k, core.NewUserMessageEvent("inv", "hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	second, err := s.GetOrCreate(k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Events()) != 1 {
		t.Fatalf("GetOrCreate must not reset history, got %d events", len(second.Events()))
	}
}

func TestInMemoryStore_RolesAreIsolated(t *testing.T) {
	s := NewInMemoryStore()

	if _, err := s.GetOrCreate(key(core.RoleStructuredData)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AppendEvent(key(core.RoleStructuredData), core.NewUserMessageEvent("inv", "tx")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	other, err := s.GetOrCreate(key(core.RoleRetrieval))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.Events()) != 0 {
		t.Fatalf("role threads must not share history")
	}
}

func TestInMemoryStore_MissingThread(t *testing.T) {
	s := NewInMemoryStore()
	k := key(core.RoleSynthesizer)

	if _, err := s.Get(k); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := s.AppendEvent(k, core.NewUserMessageEvent("inv", "x")); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := s.ApplyDelta(k, map[string]any{"a": 1}); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestInMemoryStore_PartialEventsExcludedFromHistory(t *testing.T) {
	s := NewInMemoryStore()
	k := key(core.RoleSynthesizer)

	if _, err := s.GetOrCreate(k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunk := testutil.NewEventBuilder().
		Author("synthesizer").Invocation("inv").
		AssistantText("partial chu").Partial(true).
		Build()
	final := testutil.NewEventBuilder().
		Author("synthesizer").Invocation("inv").
		AssistantText("full reply").TurnComplete(true).
		Build()

	if err := s.AppendEvent(k, chunk); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.AppendEvent(k, final); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	th, err := s.Get(k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history := th.ConversationHistory()
	if len(history) != 1 || history[0].Text() != "full reply" {
		t.Fatalf("expected only the final event in history, got %v", history)
	}
}

func TestInMemoryStore_CloneIsolation(t *testing.T) {
	s := NewInMemoryStore()
	k := key(core.RoleOrchestrator)

	first, _ := s.GetOrCreate(k)
	first.SetState("leak", true)

	fresh, _ := s.Get(k)
	if _, ok := fresh.GetState("leak"); ok {
		t.Fatalf("mutating a returned clone must not affect the stored thread")
	}
}
