package core

// SearchResult represents a recalled memory item with a relevance score and
// arbitrary metadata (origin role, timestamps).
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// MemoryStore is the engine's long-term memory. Completed thread turns are
// written through after every agent invocation and become searchable across
// all role-threads of the same (app, user) pair.
//
// The store is append-only: AddThread never rewrites or removes previously
// stored entries, it only records events not yet captured for that thread.
type MemoryStore interface {
	// AddThread snapshots the thread's conversational log into memory.
	// Calling it repeatedly with a growing thread must not duplicate
	// already-captured events.
	AddThread(t *Thread) error
	// Search returns up to limit entries for (app, userID) ranked by
	// relevance to query. An empty result is not an error.
	Search(app, userID, query string, limit int) ([]SearchResult, error)
}
