package agent

import (
	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/prompt"
	"github.com/bankdesk/bankdesk/retrieval"
	"github.com/bankdesk/bankdesk/store"
	"github.com/bankdesk/bankdesk/tool"
	"github.com/bankdesk/bankdesk/tool/banking"
)

// Thread state keys written by the roster agents. Each agent publishes its
// final text under its key so downstream stages can read it without parsing
// the event stream.
const (
	KeyQueryIntent      = "query_intent"
	KeyStructuredOutput = "structured_output"
	KeyRetrievalOutput  = "retrieval_output"
	KeyFinalResponse    = "final_response"
)

// Sampling temperature for the synthesizer, which benefits from more varied
// phrasing than the deterministic data agents.
const synthesizerTemperature = 0.7

// RosterOptions tunes roster construction without changing agent wiring.
type RosterOptions struct {
	// SynthesizerTemperature overrides the synthesizer's sampling temperature.
	SynthesizerTemperature *float64
	// MaxHistoryMessages bounds every agent's conversation window.
	MaxHistoryMessages int
}

// NewOrchestrator builds the intent-classification agent. Its single job is
// emitting space-separated intent keywords which are stored under
// query_intent; long-term memory recall is available for queries that refer
// back to earlier conversations.
func NewOrchestrator(llm model.Model, prompts *prompt.Config, optFns ...func(o *RosterOptions)) (*Agent, error) {
	ropts := rosterOptions(optFns)

	instruction, err := prompts.Instruction(core.RoleOrchestrator)
	if err != nil {
		return nil, err
	}

	return New("orchestrator", core.RoleOrchestrator, llm, func(o *Options) {
		o.Instruction = NewInstructionFromText(instruction)
		o.OutputKey = KeyQueryIntent
		o.MaxHistoryMessages = ropts.MaxHistoryMessages
		o.Tools = []tool.Tool{tool.NewLoadMemoryTool()}
	}), nil
}

// NewStructuredDataAgent builds the transaction/account specialist backed by
// the banking store. It preloads long-term memory so past account discussions
// inform tool selection.
func NewStructuredDataAgent(llm model.Model, prompts *prompt.Config, st store.Store, optFns ...func(o *RosterOptions)) (*Agent, error) {
	ropts := rosterOptions(optFns)

	instruction, err := prompts.Instruction(core.RoleStructuredData)
	if err != nil {
		return nil, err
	}

	tools := banking.Toolset(st)
	tools = append(tools, tool.NewLoadMemoryTool())

	return New("data_agent", core.RoleStructuredData, llm, func(o *Options) {
		o.Instruction = NewInstructionFromText(instruction)
		o.OutputKey = KeyStructuredOutput
		o.PreloadMemory = true
		o.MaxHistoryMessages = ropts.MaxHistoryMessages
		o.Tools = tools
	}), nil
}

// NewRetrievalAgent builds the product-information specialist over the
// knowledge base searcher.
func NewRetrievalAgent(llm model.Model, prompts *prompt.Config, searcher retrieval.Searcher, optFns ...func(o *RosterOptions)) (*Agent, error) {
	ropts := rosterOptions(optFns)

	instruction, err := prompts.Instruction(core.RoleRetrieval)
	if err != nil {
		return nil, err
	}

	return New("retrieval_agent", core.RoleRetrieval, llm, func(o *Options) {
		o.Instruction = NewInstructionFromText(instruction)
		o.OutputKey = KeyRetrievalOutput
		o.PreloadMemory = true
		o.MaxHistoryMessages = ropts.MaxHistoryMessages
		o.Tools = []tool.Tool{
			retrieval.NewSearchTool(searcher),
			tool.NewLoadMemoryTool(),
		}
	}), nil
}

// NewSynthesizer builds the response-composition agent. It runs warmer than
// the specialists, has no tools, and preloads relevant long-term memory so
// past turns inform the phrasing of the final reply.
func NewSynthesizer(llm model.Model, prompts *prompt.Config, optFns ...func(o *RosterOptions)) (*Agent, error) {
	ropts := rosterOptions(optFns)

	instruction, err := prompts.Instruction(core.RoleSynthesizer)
	if err != nil {
		return nil, err
	}

	temperature := ropts.SynthesizerTemperature
	if temperature == nil {
		t := synthesizerTemperature
		temperature = &t
	}

	return New("synthesizer", core.RoleSynthesizer, llm, func(o *Options) {
		o.Instruction = NewInstructionFromText(instruction)
		o.OutputKey = KeyFinalResponse
		o.Temperature = temperature
		o.PreloadMemory = true
		o.MaxHistoryMessages = ropts.MaxHistoryMessages
	}), nil
}

func rosterOptions(optFns []func(o *RosterOptions)) RosterOptions {
	opts := RosterOptions{MaxHistoryMessages: 20}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}
