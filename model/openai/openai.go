// Package openai adapts the OpenAI Chat Completions API (streaming and
// function/tool calling) to the generic model.Model interface. Normalized
// request contents are translated into SDK messages on the way out and SDK
// chunks back into model.Response values on the way in.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/model"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI model adapter. Fields mirror a minimal subset
// of Chat Completion parameters; extend via functional options without
// breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client. The client
// reads OPENAI_API_KEY from the environment.
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model for both streaming and non-streaming runs.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		params := m.buildParams(req, m.buildMessages(req))
		if req.Stream {
			m.streamCompletion(ctx, params, out, errCh)
			return
		}
		m.completeOnce(ctx, params, out, errCh)
	}()
	return out, errCh
}

// pendingToolResults indexes function responses by call ID, preserving
// first-seen order so unmatched results can still be flushed at the end.
type pendingToolResults struct {
	byID  map[string]string
	order []string
}

func collectToolResults(req model.Request) *pendingToolResults {
	pending := &pendingToolResults{byID: map[string]string{}}
	for _, c := range req.Contents {
		if c.Role != "tool" {
			continue
		}
		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.ID == "" {
				continue
			}
			if _, seen := pending.byID[fr.FunctionResponse.ID]; seen {
				continue
			}
			text, ok := fr.FunctionResponse.Response.(string)
			if !ok {
				text = fmt.Sprintf("%v", fr.FunctionResponse.Response)
			}
			pending.byID[fr.FunctionResponse.ID] = text
			pending.order = append(pending.order, fr.FunctionResponse.ID)
		}
	}
	return pending
}

func (p *pendingToolResults) take(id string) (string, bool) {
	text, ok := p.byID[id]
	if ok {
		delete(p.byID, id)
	}
	return text, ok
}

// buildMessages converts normalized contents into OpenAI chat messages.
// The API requires each tool message to directly follow the assistant
// message carrying the matching tool call, so results are interleaved by ID.
func (m *Model) buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	pending := collectToolResults(req)

	var messages []openai.ChatCompletionMessageParamUnion
	for _, c := range req.Contents {
		if c.Role == "tool" {
			continue
		}
		text := contentText(c)
		switch c.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		case "user":
			messages = append(messages, openai.UserMessage(text))
		case "assistant":
			calls, callIDs := assistantToolCalls(c)
			if len(calls) == 0 {
				messages = append(messages, openai.AssistantMessage(text))
				continue
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: calls,
				},
			})
			for _, id := range callIDs {
				if id == "" {
					continue
				}
				if result, ok := pending.take(id); ok {
					messages = append(messages, openai.ToolMessage(result, id))
				}
			}
		default:
			if text != "" {
				messages = append(messages, openai.UserMessage(text))
			}
		}
	}

	// Flush results whose originating call never appeared in the contents.
	for _, id := range pending.order {
		if result, ok := pending.take(id); ok {
			messages = append(messages, openai.ToolMessage(result, id))
		}
	}
	return messages
}

func contentText(c core.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(core.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

func assistantToolCalls(c core.Content) ([]openai.ChatCompletionMessageToolCallParam, []string) {
	var calls []openai.ChatCompletionMessageToolCallParam
	var ids []string
	for _, p := range c.Parts {
		fc, ok := p.(core.FunctionCallPart)
		if !ok {
			continue
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID:   fc.FunctionCall.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.FunctionCall.Name,
				Arguments: fc.FunctionCall.Arguments,
			},
		})
		ids = append(ids, fc.FunctionCall.ID)
	}
	return calls, ids
}

// buildParams assembles the completion parameters including tool definitions.
// A request-level temperature overrides the adapter default so per-agent
// sampling settings survive a shared client.
func (m *Model) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	temperature := m.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// toolCallAccumulator rebuilds a complete function call from streamed deltas;
// the id and name arrive once, arguments arrive as string fragments.
type toolCallAccumulator struct{ id, name, args string }

func (a *toolCallAccumulator) merge(tc openai.ChatCompletionChunkChoiceDeltaToolCall) {
	if tc.ID != "" {
		a.id = tc.ID
	}
	if tc.Function.Name != "" {
		a.name = tc.Function.Name
	}
	a.args += tc.Function.Arguments
}

func (a *toolCallAccumulator) part() core.Part {
	return core.FunctionCallPart{FunctionCall: core.FunctionCall{
		ID:        a.id,
		Name:      a.name,
		Arguments: a.args,
	}}
}

// streamCompletion forwards partial text and tool-call deltas, then emits one
// final response when the finish reason arrives.
func (m *Model) streamCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	var text strings.Builder
	calls := map[int64]*toolCallAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				out <- model.Response{
					Partial: true,
					Content: core.Content{
						Role:  "assistant",
						Parts: []core.Part{core.TextPart{Text: choice.Delta.Content}},
					},
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				acc, ok := calls[tc.Index]
				if !ok {
					acc = &toolCallAccumulator{}
					calls[tc.Index] = acc
				}
				acc.merge(tc)
				out <- model.Response{
					Partial: true,
					Content: core.Content{Role: "assistant", Parts: []core.Part{acc.part()}},
				}
			}
			if choice.FinishReason == "" {
				continue
			}
			parts := make([]core.Part, 0, len(calls)+1)
			if text.Len() > 0 {
				parts = append(parts, core.TextPart{Text: text.String()})
			}
			for _, acc := range calls {
				parts = append(parts, acc.part())
			}
			out <- model.Response{
				Partial:      false,
				Content:      core.Content{Role: "assistant", Parts: parts},
				FinishReason: choice.FinishReason,
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("openai streaming error: %w", err)
	}
}

// completeOnce performs a plain (non-streaming) completion.
func (m *Model) completeOnce(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("openai api error: %w", err)
		return
	}
	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("no choices returned")
		return
	}
	choice := resp.Choices[0]
	parts := make([]core.Part, 0, len(choice.Message.ToolCalls)+1)
	if choice.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}
	out <- model.Response{
		Partial:      false,
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
