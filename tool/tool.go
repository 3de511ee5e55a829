// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (data lookups, computations, recall) with schema
// validated arguments, consistent error handling and rich metadata for LLM guidance.
package tool

import (
	"fmt"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/internal/util"
)

// Tool is a callable capability an agent can invoke through function calling:
// banking data lookups, arithmetic, knowledge search, memory recall.
//
// Implementations must be safe for concurrent use; the same tool value is
// shared across invocations. The ToolContext gives access to thread state and
// long-term memory scoped to the current invocation.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description is surfaced to the model so it can decide when to call
	// the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	// Used both for validation and for the model's function definitions.
	Parameters() map[string]interface{}

	// Call executes the tool. Arguments arrive parsed from the model's JSON
	// and already validated against Parameters.
	Call(toolCtx *core.ToolContext, args map[string]interface{}) (interface{}, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string      `json:"tool"`              // Name of the tool that failed
	Message string      `json:"message"`           // Error message
	Code    string      `json:"code"`              // Error code for categorization
	Details interface{} `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
