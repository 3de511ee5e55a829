package core

// Part is one segment of role-based content. The unexported marker keeps the
// union closed to the three kinds the engine produces: text, function call,
// function response.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string
	Metadata map[string]any // optional producer-provided metadata
}

func (TextPart) isPart() {}

// FunctionCall describes a tool invocation requested by the model.
type FunctionCall struct {
	// ID correlates the call with its FunctionResponse. Providers that do
	// not assign ids get one from the executor.
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // serialized JSON payload
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
	Metadata     map[string]any
}

func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a tool invocation.
type FunctionResponse struct {
	ID       string      `json:"id,omitempty"` // matches the originating FunctionCall ID
	Name     string      `json:"name"`
	Response interface{} `json:"response,omitempty"` // successful result, any shape
	Error    string      `json:"error,omitempty"`    // populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
	Metadata         map[string]any
}

func (FunctionResponsePart) isPart() {}

// Content holds a conversation role (user, assistant, tool, system) plus
// ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Text concatenates all text parts in order. Non-text parts are skipped, so
// a pure tool-call content yields "".
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
