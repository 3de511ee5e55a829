package core

import "testing"

func TestThreadKey_String(t *testing.T) {
	k := ThreadKey{App: "bankdesk", UserID: "u1", Role: RoleOrchestrator}
	if k.String() != "bankdesk/u1/orchestrator" {
		t.Fatalf("unexpected key rendering: %s", k)
	}
}

func TestThread_ApplyStateDeltaAndClone(t *testing.T) {
	th := NewThread(ThreadKey{App: "bankdesk", UserID: "u1", Role: RoleRetrieval})

	delta := map[string]any{"a": 1, "b": "x"}

	th.ApplyStateDelta(delta)
	if v, ok := th.GetState("a"); !ok || v.(int) != 1 {
		t.Fatalf("State not applied: %+v", th.State)
	}

	clone := th.Clone()
	if clone == th {
		t.Error("Clone should be a different pointer")
	}

	clone.SetState("c", 2)
	if _, exists := th.GetState("c"); exists {
		t.Error("Original should not have clone's new key")
	}
}

func TestThread_AddEventAndHistory(t *testing.T) {
	userEv := NewUserMessageEvent("inv-123", "hi")
	assistantEv := NewMessageEvent("assistant", "hello")
	th := NewThread(ThreadKey{App: "bankdesk", UserID: "u2", Role: RoleSynthesizer})
	th.AddEvent(assistantEv)
	th.AddEvent(userEv)
	all := th.Events()
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	orig := all[0].Author
	all[0].Author = "changed"
	if th.Events()[0].Author != orig {
		t.Error("events slice should be copied on read")
	}
	history := th.ConversationHistory()
	foundUser := false
	for _, hev := range history {
		if hev.Content != nil && hev.Content.Role == "user" {
			foundUser = true
		}
	}
	if !foundUser {
		t.Error("expected user event in history")
	}
}

func TestThread_HistoryExcludesPartials(t *testing.T) {
	th := NewThread(ThreadKey{App: "bankdesk", UserID: "u3", Role: RoleStructuredData})
	partial := true
	frag := NewMessageEvent("assistant", "strea")
	frag.Partial = &partial
	th.AddEvent(frag)
	th.AddEvent(NewMessageEvent("assistant", "streaming done"))
	history := th.ConversationHistory()
	if len(history) != 1 {
		t.Fatalf("expected partials filtered, got %d events", len(history))
	}
}
