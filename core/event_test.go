package core

import (
	"errors"
	"testing"
)

func TestEvent_Constructors(t *testing.T) {
	e := NewEvent("inv-123", "orchestrator")
	if e.Author != "orchestrator" || e.InvocationID != "inv-123" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	msg := NewMessageEvent("synthesizer", "Your balance is $2450.75.")
	if msg.Content == nil || msg.Content.Role != "assistant" || len(msg.Content.Parts) != 1 {
		t.Fatalf("NewMessageEvent malformed: %+v", msg)
	}
	if msg.Text() != "Your balance is $2450.75." {
		t.Fatalf("text extraction failed: %q", msg.Text())
	}

	user := NewUserMessageEvent("inv-123", "show my transactions")
	if user.Content == nil || user.Content.Role != "user" {
		t.Fatalf("NewUserMessageEvent malformed: %+v", user)
	}
}

func TestEvent_FunctionCallExtraction(t *testing.T) {
	call := NewFunctionCallEvent("data_agent", "find_transactions", `{"customer_id":"cust-001"}`)
	calls := call.GetFunctionCalls()
	if len(calls) != 1 || calls[0].Name != "find_transactions" {
		t.Fatalf("GetFunctionCalls extraction failed: %+v", calls)
	}
	if calls[0].Arguments != `{"customer_id":"cust-001"}` {
		t.Fatalf("arguments not preserved: %q", calls[0].Arguments)
	}

	ok := NewFunctionResponseEvent("data_agent", "call-1", "find_transactions", 4, nil)
	resps := ok.GetFunctionResponses()
	if len(resps) != 1 || resps[0].Response.(int) != 4 || resps[0].Error != "" {
		t.Fatalf("function response success extraction failed: %+v", resps)
	}

	failed := NewFunctionResponseEvent("data_agent", "call-2", "find_transactions", nil, errors.New("boom"))
	if failed.GetFunctionResponses()[0].Error == "" {
		t.Fatalf("expected error message in function response")
	}
}

func TestEvent_IsFinalResponse(t *testing.T) {
	if !NewMessageEvent("synthesizer", "done").IsFinalResponse() {
		t.Error("plain assistant message should be final")
	}

	partial := true
	chunk := NewMessageEvent("synthesizer", "par")
	chunk.Partial = &partial
	if chunk.IsFinalResponse() {
		t.Error("partial event should not be final")
	}

	if NewFunctionCallEvent("data_agent", "calculate", "").IsFinalResponse() {
		t.Error("event with function call should not be final")
	}
	if NewFunctionResponseEvent("data_agent", "call-3", "calculate", "ok", nil).IsFinalResponse() {
		t.Error("event with function response should not be final")
	}
}

func TestNewID_Uniqueness(t *testing.T) {
	if NewID() == NewID() {
		t.Error("expected unique IDs")
	}
}

func TestParts_ClosedUnion(t *testing.T) {
	parts := []Part{
		TextPart{Text: "hello"},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "get_account"}},
		FunctionResponsePart{FunctionResponse: FunctionResponse{Name: "get_account"}},
	}
	for _, p := range parts {
		switch pt := p.(type) {
		case TextPart, FunctionCallPart, FunctionResponsePart:
		default:
			t.Fatalf("unexpected part type: %T (%v)", pt, pt)
		}
	}
}
