// Package retrieval provides the product knowledge base searched by the
// retrieval agent: passage model, keyword searcher and the search tool.
package retrieval

import (
	"context"
	"sort"
	"strings"
)

// Passage is one retrievable unit of product or policy documentation.
type Passage struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// Result pairs a passage with its relevance score for a query.
type Result struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// Searcher finds passages relevant to a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// KeywordSearcher ranks passages by token overlap between the query and the
// passage title, content and tags. Tag hits weigh double since tags are
// curated. Zero-overlap passages are excluded.
type KeywordSearcher struct {
	passages []Passage
}

// NewKeywordSearcher builds a searcher over the given passages.
func NewKeywordSearcher(passages ...Passage) *KeywordSearcher {
	return &KeywordSearcher{passages: passages}
}

// Search implements Searcher.
func (s *KeywordSearcher) Search(_ context.Context, query string, limit int) ([]Result, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(s.passages))
	for _, p := range s.passages {
		score := 0.0
		text := tokenize(p.Title + " " + p.Content)
		for token := range queryTokens {
			if text[token] {
				score++
			}
		}
		for _, tag := range p.Tags {
			if queryTokens[strings.ToLower(tag)] {
				score += 2
			}
		}
		if score > 0 {
			results = append(results, Result{Passage: p, Score: score})
		}
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
