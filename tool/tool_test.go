package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/internal/testutil"
	"github.com/bankdesk/bankdesk/internal/util"
	"github.com/bankdesk/bankdesk/logging"
	"github.com/bankdesk/bankdesk/memory"
	"github.com/bankdesk/bankdesk/session"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	// Properties present
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes non-pointer, non-omitempty exported fields
	req, _ := schema["required"].([]string)
	if req == nil { // reflection may produce []any
		ifaceReq, _ := schema["required"].([]any)
		for _, v := range ifaceReq {
			req = append(req, v.(string))
		}
	}
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		// Use []any to mirror possible JSON decoded schema shape
		"required": []any{"x"},
	}

	// Success
	err := util.ValidateParameters(map[string]any{"x": 5}, schema)
	assert.NoError(t, err)

	// Missing required
	err = util.ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Equal(t, "x", vErr.Field)
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	// Wrong type
	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Contains(t, vErr.Message, "expected type integer")
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

// -------------------- Test fixtures --------------------

func testRunContext(t *testing.T, mem core.MemoryStore) *core.RunContext {
	t.Helper()

	key := core.ThreadKey{App: "Bank Customer Service", UserID: "user-1", Role: core.RoleStructuredData}
	threads := session.NewInMemoryStore()
	thread, err := threads.GetOrCreate(key)
	require.NoError(t, err)

	emit := make(chan core.Event, 10)
	resume := make(chan struct{}, 1)

	return core.NewRunContext(
		context.Background(),
		key,
		"inv-1",
		core.AgentInfo{Name: "data_agent", Role: core.RoleStructuredData},
		core.Content{},
		10,
		emit,
		resume,
		thread,
		threads,
		mem,
		logging.NoOpLogger{},
	)
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		a := args["a"].(float64)
		b := args["b"].(float64)
		return a + b, nil
	})

	tc := core.NewToolContext(testRunContext(t, nil), "fc1")
	result, err := sumTool.Call(tc, map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		// Use interface slice to match ValidateParameters implementation expectation
		"required": []any{"a"},
	}
	tTool := NewFunctionTool("test", "Test", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return 0, nil
	})
	tc := core.NewToolContext(testRunContext(t, nil), "fc2")
	_, err := tTool.Call(tc, map[string]any{})
	assert.Error(t, err)
	toolErr, ok := err.(*ToolError)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool := NewFunctionTool("fail", "Fails", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	tc := core.NewToolContext(testRunContext(t, nil), "fc3")
	_, err := execTool.Call(tc, map[string]any{})
	assert.Error(t, err)
	toolErr, ok := err.(*ToolError)
	assert.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestFunctionTool_PassesThroughToolError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	custom := NewToolError("custom", "quota exceeded", "QUOTA_EXCEEDED")
	customTool := NewFunctionTool("custom", "Custom error", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, custom
	})
	tc := core.NewToolContext(testRunContext(t, nil), "fc4")
	_, err := customTool.Call(tc, map[string]any{})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "QUOTA_EXCEEDED", toolErr.Code)
}

// -------------------- LoadMemory Tool Tests --------------------

func TestLoadMemoryTool_Search(t *testing.T) {
	mem := memory.NewInMemoryStore()

	// Record a turn from a different role-thread of the same user.
	key := core.ThreadKey{App: "Bank Customer Service", UserID: "user-1", Role: core.RoleOrchestrator}
	thread := testutil.NewThreadBuilder(key).
		UserMessage("inv-0", "What were my recent deposits?").
		AssistantMessage("orchestrator", "You had a salary deposit of $1500.").
		Build()
	require.NoError(t, mem.AddThread(thread))

	lm := NewLoadMemoryTool()
	tc := core.NewToolContext(testRunContext(t, mem), "fc-mem")

	res, err := lm.Call(tc, map[string]any{"query": "deposit salary", "limit": float64(3)})
	require.NoError(t, err)

	out := res.(map[string]any)
	assert.Equal(t, "deposit salary", out["query"])
	require.GreaterOrEqual(t, out["count"].(int), 1)

	entries := out["results"].([]map[string]any)
	assert.Contains(t, entries[0]["content"], "salary deposit")
}

func TestLoadMemoryTool_DefaultLimit(t *testing.T) {
	mem := memory.NewInMemoryStore()
	key := core.ThreadKey{App: "Bank Customer Service", UserID: "user-1", Role: core.RoleRetrieval}
	builder := testutil.NewThreadBuilder(key)
	for i := 0; i < 8; i++ {
		builder.AssistantMessage("retrieval_agent", "savings account details")
	}
	require.NoError(t, mem.AddThread(builder.Build()))

	lm := NewLoadMemoryTool()
	tc := core.NewToolContext(testRunContext(t, mem), "fc-mem-limit")

	res, err := lm.Call(tc, map[string]any{"query": "savings"})
	require.NoError(t, err)
	out := res.(map[string]any)
	assert.Equal(t, 5, out["count"])
}

func TestLoadMemoryTool_NoStore(t *testing.T) {
	lm := NewLoadMemoryTool()
	tc := core.NewToolContext(testRunContext(t, nil), "fc-mem-missing")

	_, err := lm.Call(tc, map[string]any{"query": "anything"})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

// -------------------- ToolError Formatting --------------------

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
