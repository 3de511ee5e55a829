package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankdesk/bankdesk/agent"
	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/memory"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/session"
	"github.com/bankdesk/bankdesk/tool/banking"
)

func testKey(role core.Role) core.ThreadKey {
	return core.ThreadKey{App: "Bank Customer Service", UserID: "user-1", Role: role}
}

func TestExecutor_RunSync_FinalText(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("hello", "Hi there, how can I help?")

	ag := agent.New("orchestrator", core.RoleOrchestrator, llm, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("Classify the query.")
		o.OutputKey = "query_intent"
	})

	exec := New()
	key := testKey(core.RoleOrchestrator)

	turn, err := exec.RunSync(context.Background(), ag, key, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there, how can I help?", turn.FinalText)
	assert.Equal(t, "Hi there, how can I help?", turn.Output)

	// Exactly one final text event.
	finals := 0
	for _, ev := range turn.Events {
		if ev.IsFinalResponse() && ev.Text() != "" {
			finals++
		}
	}
	assert.Equal(t, 1, finals)

	// Output key committed to thread state.
	thread, err := exec.ThreadStore().Get(key)
	require.NoError(t, err)
	v, ok := thread.GetState("query_intent")
	require.True(t, ok)
	assert.Equal(t, "Hi there, how can I help?", v)

	// History holds the user turn and the assistant turn.
	history := thread.ConversationHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Content.Role)
	assert.Equal(t, "assistant", history[1].Content.Role)
}

func TestExecutor_OutputKeyCommittedBeforeFinalEvent(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("classify me", "transaction history")

	ag := agent.New("orchestrator", core.RoleOrchestrator, llm, func(o *agent.Options) {
		o.OutputKey = "query_intent"
	})

	exec := New()
	key := testKey(core.RoleOrchestrator)

	_, events, errs, err := exec.Run(context.Background(), ag, key, "classify me")
	require.NoError(t, err)

	for ev := range events {
		if ev.IsFinalResponse() && ev.Text() != "" {
			// State must already be readable when the final event arrives.
			thread, err := exec.ThreadStore().Get(key)
			require.NoError(t, err)
			v, ok := thread.GetState("query_intent")
			require.True(t, ok)
			assert.Equal(t, "transaction history", v)
		}
	}
	require.NoError(t, <-errs)
}

func TestExecutor_ToolLoop(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddFunctionCall("what is 2+2?", "calculate", `{"expression": "2 + 2"}`)
	llm.AddResponse("", "The answer is 4.")

	ag := agent.New("data_agent", core.RoleStructuredData, llm, func(o *agent.Options) {
		o.OutputKey = "structured_output"
		o.Tools = banking.MathToolset()
	})

	exec := New()
	turn, err := exec.RunSync(context.Background(), ag, testKey(core.RoleStructuredData), "what is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", turn.FinalText)

	var sawCall, sawResponse bool
	for _, ev := range turn.Events {
		if len(ev.GetFunctionCalls()) > 0 {
			sawCall = true
		}
		for _, fr := range ev.GetFunctionResponses() {
			sawResponse = true
			assert.Equal(t, "calculate", fr.Name)
			assert.Equal(t, 4.0, fr.Response)
		}
	}
	assert.True(t, sawCall)
	assert.True(t, sawResponse)
}

func TestExecutor_ModelFailure_StillWritesMemory(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.FailWith(errors.New("provider unavailable"))

	ag := agent.New("data_agent", core.RoleStructuredData, llm)

	mem := memory.NewInMemoryStore()
	exec := New(func(o *Options) { o.MemoryStore = mem })

	key := testKey(core.RoleStructuredData)
	_, err := exec.RunSync(context.Background(), ag, key, "show my deposits")
	require.Error(t, err)

	// The user turn reached long-term memory despite the failure.
	results, err := mem.Search(key.App, key.UserID, "deposits", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "deposits")
}

// hangModel blocks until the context is cancelled.
type hangModel struct{}

func (hangModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return respCh, errCh
}

func (hangModel) Info() model.Info { return model.Info{Name: "hang", Provider: "test"} }

func TestExecutor_Timeout(t *testing.T) {
	ag := agent.New("slow", core.RoleStructuredData, hangModel{})

	exec := New(func(o *Options) { o.Timeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := exec.RunSync(context.Background(), ag, testKey(core.RoleStructuredData), "anything")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutor_TimeoutShutdownClean(t *testing.T) {
	ag := agent.New("slow", core.RoleStructuredData, hangModel{})

	exec := New(func(o *Options) { o.Timeout = time.Millisecond })

	// Repeated deadline-fires-mid-turn shutdowns must stay panic-free and
	// still report the cause to the caller.
	for i := 0; i < 50; i++ {
		_, err := exec.RunSync(context.Background(), ag, testKey(core.RoleStructuredData), "anything")
		require.Error(t, err)
	}
}

// closedErrModel buffers a failure and immediately closes both channels.
type closedErrModel struct{}

func (closedErrModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error, 1)
	errCh <- errors.New("provider unavailable")
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (closedErrModel) Info() model.Info { return model.Info{Name: "closed", Provider: "test"} }

func TestExecutor_BufferedModelErrorNotDropped(t *testing.T) {
	ag := agent.New("data_agent", core.RoleStructuredData, closedErrModel{})
	exec := New()

	// Whichever select case wins, the buffered failure must surface.
	for i := 0; i < 100; i++ {
		_, err := exec.RunSync(context.Background(), ag, testKey(core.RoleStructuredData), "anything")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider unavailable")
	}
}

// loopModel requests the same tool on every turn, never finishing.
type loopModel struct{ mu sync.Mutex }

func (m *loopModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	respCh <- model.Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID: core.NewID(), Name: "calculate", Arguments: `{"expression": "1 + 1"}`,
			}}},
		},
		FinishReason: "tool_calls",
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *loopModel) Info() model.Info { return model.Info{Name: "loop", Provider: "test"} }

func TestExecutor_MaxModelCallsBound(t *testing.T) {
	ag := agent.New("loop", core.RoleStructuredData, &loopModel{}, func(o *agent.Options) {
		o.Tools = banking.MathToolset()
	})

	exec := New(func(o *Options) { o.MaxModelCalls = 3 })

	_, err := exec.RunSync(context.Background(), ag, testKey(core.RoleStructuredData), "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max model calls")
}

// captureModel records the last request it received.
type captureModel struct {
	mu   sync.Mutex
	last model.Request
}

func (m *captureModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	respCh <- model.Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "ok"}}},
		FinishReason: "stop",
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *captureModel) Info() model.Info { return model.Info{Name: "capture", Provider: "test"} }

func (m *captureModel) Last() model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func TestExecutor_InstructionPlaceholdersAndMemoryPreload(t *testing.T) {
	llm := &captureModel{}

	ag := agent.New("data_agent", core.RoleStructuredData, llm, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("You serve customer {user_id}.")
		o.PreloadMemory = true
	})

	mem := memory.NewInMemoryStore()
	key := testKey(core.RoleStructuredData)

	// Seed memory from another role-thread of the same user.
	otherKey := core.ThreadKey{App: key.App, UserID: key.UserID, Role: core.RoleOrchestrator}
	otherThread := core.NewThread(otherKey)
	otherThread.AddEvent(core.NewMessageEvent("orchestrator", "Customer asked about savings rates."))
	require.NoError(t, mem.AddThread(otherThread))

	exec := New(func(o *Options) { o.MemoryStore = mem })

	_, err := exec.RunSync(context.Background(), ag, key, "tell me about savings")
	require.NoError(t, err)

	req := llm.Last()
	assert.Contains(t, req.Instructions, "You serve customer user-1.")
	assert.Contains(t, req.Instructions, "Relevant past conversation:")
	assert.Contains(t, req.Instructions, "savings rates")
}

func TestExecutor_Temperature(t *testing.T) {
	llm := &captureModel{}
	temp := 0.7

	ag := agent.New("synthesizer", core.RoleSynthesizer, llm, func(o *agent.Options) {
		o.Temperature = &temp
	})

	exec := New()
	_, err := exec.RunSync(context.Background(), ag, testKey(core.RoleSynthesizer), "compose")
	require.NoError(t, err)

	req := llm.Last()
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 0.001)
}

func TestExecutor_SessionStoreShared(t *testing.T) {
	// Two invocations on the same key accumulate one history.
	llm := model.NewMockModel("mock", "mock")
	ag := agent.New("orchestrator", core.RoleOrchestrator, llm)

	threads := session.NewInMemoryStore()
	exec := New(func(o *Options) { o.ThreadStore = threads })
	key := testKey(core.RoleOrchestrator)

	_, err := exec.RunSync(context.Background(), ag, key, "first")
	require.NoError(t, err)
	_, err = exec.RunSync(context.Background(), ag, key, "second")
	require.NoError(t, err)

	thread, err := threads.Get(key)
	require.NoError(t, err)
	assert.Len(t, thread.ConversationHistory(), 4)
}
