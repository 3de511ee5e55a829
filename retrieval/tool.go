package retrieval

import (
	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/tool"
)

const defaultSearchLimit = 4

// NewSearchTool wraps a Searcher as the search_knowledge_base tool handed to
// the retrieval agent.
func NewSearchTool(searcher Searcher) *tool.FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Free-text search over product and policy documentation",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of passages to return (default 4)",
			},
		},
		"required": []string{"query"},
	}

	return tool.NewFunctionTool(
		"search_knowledge_base",
		"Search the bank's product and policy knowledge base for relevant passages",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)

			limit := defaultSearchLimit
			if raw, ok := args["limit"].(float64); ok && int(raw) > 0 {
				limit = int(raw)
			}

			results, err := searcher.Search(toolCtx.Context(), query, limit)
			if err != nil {
				return nil, tool.NewToolError("search_knowledge_base", err.Error(), "EXECUTION_ERROR")
			}

			passages := make([]map[string]any, 0, len(results))
			for _, r := range results {
				passages = append(passages, map[string]any{
					"id":      r.Passage.ID,
					"title":   r.Passage.Title,
					"content": r.Passage.Content,
					"score":   r.Score,
				})
			}

			return map[string]any{
				"query":    query,
				"count":    len(passages),
				"passages": passages,
			}, nil
		},
	)
}
