package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/logging"
	"github.com/bankdesk/bankdesk/session"
)

func TestKeywordSearcher_Ranking(t *testing.T) {
	s := NewKeywordSearcher(DefaultCorpus()...)

	results, err := s.Search(context.Background(), "savings account interest rate", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "kb-001", results[0].Passage.ID)
	assert.LessOrEqual(t, len(results), 3)

	// Scores are non-increasing.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestKeywordSearcher_TagBoost(t *testing.T) {
	s := NewKeywordSearcher(
		Passage{ID: "a", Title: "Generic", Content: "overdraft mentioned once"},
		Passage{ID: "b", Title: "Policy", Content: "some unrelated text", Tags: []string{"overdraft"}},
	)

	results, err := s.Search(context.Background(), "overdraft", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Passage.ID)
}

func TestKeywordSearcher_NoMatch(t *testing.T) {
	s := NewKeywordSearcher(DefaultCorpus()...)

	results, err := s.Search(context.Background(), "quantum entanglement", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	empty, err := s.Search(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchTool(t *testing.T) {
	key := core.ThreadKey{App: "Bank Customer Service", UserID: "user-1", Role: core.RoleRetrieval}
	threads := session.NewInMemoryStore()
	thread, err := threads.GetOrCreate(key)
	require.NoError(t, err)

	emit := make(chan core.Event, 10)
	resume := make(chan struct{}, 1)
	rc := core.NewRunContext(
		context.Background(),
		key,
		"inv-1",
		core.AgentInfo{Name: "retrieval_agent", Role: core.RoleRetrieval},
		core.Content{},
		10,
		emit,
		resume,
		thread,
		threads,
		nil,
		logging.NoOpLogger{},
	)
	tc := core.NewToolContext(rc, "fc-search")

	searchTool := NewSearchTool(NewKeywordSearcher(DefaultCorpus()...))
	res, err := searchTool.Call(tc, map[string]any{"query": "credit card rewards"})
	require.NoError(t, err)

	out := res.(map[string]any)
	require.GreaterOrEqual(t, out["count"].(int), 1)
	passages := out["passages"].([]map[string]any)
	assert.Equal(t, "kb-003", passages[0]["id"])
}
