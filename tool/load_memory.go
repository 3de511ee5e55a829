package tool

import (
	"github.com/bankdesk/bankdesk/core"
)

const defaultMemoryLimit = 5

// NewLoadMemoryTool returns a tool that lets an agent recall prior
// conversations of the same (app, user) pair across all role threads.
//
// Arguments:
//   - query: free text whose words are matched against stored turns
//     (an empty query returns the most recent turns)
//   - limit: optional maximum number of results (default 5)
//
// The result is a map with the query and a list of matched entries so the
// model can cite or paraphrase past context.
func NewLoadMemoryTool() *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search text matched against the user's past conversation turns",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (default 5)",
			},
		},
		"required": []string{"query"},
	}

	return NewFunctionTool(
		"load_memory",
		"Search the user's long-term conversation memory for relevant past turns",
		params,
		loadMemory,
	)
}

func loadMemory(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	query, _ := args["query"].(string)

	limit := defaultMemoryLimit
	if raw, ok := args["limit"]; ok {
		switch v := raw.(type) {
		case float64: // JSON numbers decode as float64
			limit = int(v)
		case int:
			limit = v
		}
	}
	if limit <= 0 {
		limit = defaultMemoryLimit
	}

	results, err := toolCtx.SearchMemory(query, limit)
	if err != nil {
		return nil, NewToolError("load_memory", err.Error(), "EXECUTION_ERROR")
	}

	entries := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entry := map[string]any{
			"content": r.Content,
			"score":   r.Score,
		}
		if role, ok := r.Metadata["thread_role"]; ok {
			entry["thread_role"] = role
		}
		if author, ok := r.Metadata["author"]; ok {
			entry["author"] = author
		}
		entries = append(entries, entry)
	}

	return map[string]any{
		"query":   query,
		"count":   len(entries),
		"results": entries,
	}, nil
}
