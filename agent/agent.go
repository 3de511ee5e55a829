// Package agent defines the model-backed agent abstraction and the fixed
// roster of customer-service agents (orchestrator, structured-data, retrieval,
// synthesizer) built from prompt configuration.
package agent

import (
	"encoding/json"
	"fmt"

	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/tool"
)

// Options configures an Agent instance. Use functional options with New to
// override defaults.
type Options struct {
	// Instruction is the system prompt, static or state-derived.
	Instruction Instruction
	// OutputKey, when set, stores the agent's final text in thread state
	// under this key before the final event is published.
	OutputKey string
	// Temperature overrides the provider default sampling temperature.
	Temperature *float64
	// PreloadMemory injects relevant long-term memory into the system prompt.
	PreloadMemory bool
	// MaxHistoryMessages bounds the conversation window sent to the model.
	MaxHistoryMessages int
	// Tools the model may call.
	Tools []tool.Tool
}

// Agent pairs a language model with a role, instruction and toolset. Agents
// are immutable after construction and safe for concurrent invocations.
type Agent struct {
	name               string
	role               core.Role
	llm                model.Model
	instruction        Instruction
	tools              map[string]tool.Tool
	outputKey          string
	temperature        *float64
	preloadMemory      bool
	maxHistoryMessages int
}

// New creates an Agent for the given role.
func New(name string, role core.Role, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", name)),
		MaxHistoryMessages: 20,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	tools := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		tools[t.Name()] = t
	}

	return &Agent{
		name:               name,
		role:               role,
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              tools,
		outputKey:          opts.OutputKey,
		temperature:        opts.Temperature,
		preloadMemory:      opts.PreloadMemory,
		maxHistoryMessages: opts.MaxHistoryMessages,
	}
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Role returns the agent's role in the fixed roster.
func (a *Agent) Role() core.Role { return a.role }

// Info returns identifying details for contexts and events.
func (a *Agent) Info() core.AgentInfo { return core.AgentInfo{Name: a.name, Role: a.role} }

// LLM returns the language model driving this agent.
func (a *Agent) LLM() model.Model { return a.llm }

// OutputKey returns the thread state key for the agent's final text, or "".
func (a *Agent) OutputKey() string { return a.outputKey }

// Temperature returns the sampling temperature override, or nil for the
// provider default.
func (a *Agent) Temperature() *float64 { return a.temperature }

// PreloadMemory reports whether relevant long-term memory should be injected
// into the system prompt.
func (a *Agent) PreloadMemory() bool { return a.preloadMemory }

// MaxHistoryMessages returns the conversation window size.
func (a *Agent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// ResolveInstruction produces the system prompt, invoking a dynamic provider
// if configured.
func (a *Agent) ResolveInstruction(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// Tools returns a copy of the registered toolset keyed by name.
func (a *Agent) Tools() map[string]tool.Tool {
	tools := make(map[string]tool.Tool, len(a.tools))
	for name, t := range a.tools {
		tools[name] = t
	}
	return tools
}

// HasTool reports whether a tool is registered.
func (a *Agent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ToolDefinitions renders the toolset as model-facing declarations.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	if len(a.tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// ExecuteTool deserializes JSON arguments and invokes the named tool.
func (a *Agent) ExecuteTool(toolCtx *core.ToolContext, toolName string, args string) (any, error) {
	t, exists := a.tools[toolName]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", toolName)
	}

	argsMap := make(map[string]any)
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return t.Call(toolCtx, argsMap)
}
