package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/prompt"
	"github.com/bankdesk/bankdesk/retrieval"
	"github.com/bankdesk/bankdesk/store/inmem"
)

func testPrompts(t *testing.T) *prompt.Config {
	t.Helper()
	prompts, err := prompt.Load("")
	require.NoError(t, err)
	return prompts
}

func TestNewOrchestrator(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	orch, err := NewOrchestrator(llm, testPrompts(t))
	require.NoError(t, err)

	assert.Equal(t, "orchestrator", orch.Name())
	assert.Equal(t, core.RoleOrchestrator, orch.Role())
	assert.Equal(t, KeyQueryIntent, orch.OutputKey())
	assert.Nil(t, orch.Temperature())
	assert.True(t, orch.HasTool("load_memory"))
	assert.False(t, orch.HasTool("find_transactions"))

	instruction, err := orch.ResolveInstruction(newTestRunContext())
	require.NoError(t, err)
	assert.NotEmpty(t, instruction)
}

func TestNewStructuredDataAgent(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	a, err := NewStructuredDataAgent(llm, testPrompts(t), inmem.NewWithFixtures())
	require.NoError(t, err)

	assert.Equal(t, KeyStructuredOutput, a.OutputKey())
	assert.True(t, a.PreloadMemory())
	assert.True(t, a.HasTool("find_transactions"))
	assert.True(t, a.HasTool("calculate"))
	assert.True(t, a.HasTool("load_memory"))

	defs := a.ToolDefinitions()
	assert.Equal(t, len(a.Tools()), len(defs))
}

func TestNewRetrievalAgent(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	searcher := retrieval.NewKeywordSearcher(retrieval.DefaultCorpus()...)
	a, err := NewRetrievalAgent(llm, testPrompts(t), searcher)
	require.NoError(t, err)

	assert.Equal(t, KeyRetrievalOutput, a.OutputKey())
	assert.True(t, a.HasTool("search_knowledge_base"))
	assert.False(t, a.HasTool("find_transactions"))
}

func TestNewSynthesizer(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	a, err := NewSynthesizer(llm, testPrompts(t))
	require.NoError(t, err)

	assert.Equal(t, KeyFinalResponse, a.OutputKey())
	require.NotNil(t, a.Temperature())
	assert.InDelta(t, 0.7, *a.Temperature(), 0.001)
	assert.True(t, a.PreloadMemory())
	assert.Empty(t, a.Tools())

	custom := 0.3
	warm, err := NewSynthesizer(llm, testPrompts(t), func(o *RosterOptions) {
		o.SynthesizerTemperature = &custom
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, *warm.Temperature(), 0.001)
}

func TestAgent_ExecuteTool_Unknown(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	orch, err := NewOrchestrator(llm, testPrompts(t))
	require.NoError(t, err)

	rc := newTestRunContext()
	tc := core.NewToolContext(rc, "fc-1")
	_, err = orch.ExecuteTool(tc, "nope", "{}")
	assert.Error(t, err)
}
