package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bankdesk/bankdesk/core"
)

// entry is the internal representation persisted by InMemoryStore.
type entry struct {
	ID       string
	Content  string
	Role     core.Role
	Author   string
	Stored   time.Time
	Metadata map[string]any
}

// userScope identifies the recall scope. Memory written by one role-thread is
// visible to every other role-thread of the same (app, user) pair.
type userScope struct {
	App    string
	UserID string
}

// InMemoryStore is a process-local core.MemoryStore. Completed thread turns
// are captured append-only: AddThread records only events past the thread's
// high-water mark, so repeated write-through of a growing thread never
// duplicates earlier entries.
//
// Search is a token-overlap scan ranking entries by the number of query words
// they share. Suitable for tests and single-process deployments; swap for a
// semantic index when recall quality matters.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[userScope][]entry
	// captured tracks how many events of each thread are already in memory.
	captured map[core.ThreadKey]int
	seq      int
}

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries:  make(map[userScope][]entry),
		captured: make(map[core.ThreadKey]int),
	}
}

// AddThread snapshots the thread's conversational log into memory. Only
// events beyond the previously captured count are recorded; content-free and
// partial events are skipped but still advance the mark.
func (m *InMemoryStore) AddThread(t *core.Thread) error {
	if t == nil {
		return fmt.Errorf("nil thread")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	events := t.Events()
	mark := m.captured[t.Key]
	if mark > len(events) {
		// Store was reset upstream; re-capture from scratch.
		mark = 0
	}

	scope := userScope{App: t.Key.App, UserID: t.Key.UserID}
	for _, ev := range events[mark:] {
		if ev.IsPartial() {
			continue
		}
		text := ev.Text()
		if text == "" {
			continue
		}
		m.seq++
		m.entries[scope] = append(m.entries[scope], entry{
			ID:      fmt.Sprintf("mem_%d", m.seq),
			Content: text,
			Role:    t.Key.Role,
			Author:  ev.Author,
			Stored:  time.Now(),
			Metadata: map[string]any{
				"thread_role": string(t.Key.Role),
				"author":      ev.Author,
				"event_id":    ev.ID,
			},
		})
	}
	m.captured[t.Key] = len(events)

	return nil
}

// Search returns up to limit entries for (app, userID) ranked by the number
// of query tokens they contain. An empty query matches everything with a
// neutral score.
func (m *InMemoryStore) Search(app, userID, query string, limit int) ([]core.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scope := userScope{App: app, UserID: userID}
	stored, exists := m.entries[scope]
	if !exists {
		return []core.SearchResult{}, nil
	}

	queryTokens := tokenize(query)

	results := make([]core.SearchResult, 0, len(stored))
	for _, e := range stored {
		score := overlap(queryTokens, tokenize(e.Content))
		if len(queryTokens) > 0 && score == 0 {
			continue
		}
		md := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		results = append(results, core.SearchResult{ID: e.ID, Content: e.Content, Score: float64(score), Metadata: md})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w != "" {
			tokens[w] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
