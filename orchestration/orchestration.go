// Package orchestration wires the agent roster into the customer-service
// pipeline: classify the query's intent, route to the data and knowledge
// specialists, then synthesize one natural response.
package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bankdesk/bankdesk/agent"
	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/executor"
	"github.com/bankdesk/bankdesk/logging"
	"github.com/bankdesk/bankdesk/memory"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/prompt"
	"github.com/bankdesk/bankdesk/retrieval"
	"github.com/bankdesk/bankdesk/session"
	"github.com/bankdesk/bankdesk/store"
	"github.com/bankdesk/bankdesk/store/inmem"
)

// DefaultAppName scopes thread keys and memory when no override is given.
const DefaultAppName = "Bank Customer Service"

// Fixed reply when the synthesizer itself fails. Specialist output was
// already gathered at that point, so the turn still counts as handled.
const synthesisApology = "I apologize, but I encountered an error while processing your request. Please try again."

// Intent categories in routing priority order.
const (
	IntentTransaction = "transaction"
	IntentProduct     = "product"
	IntentHybrid      = "hybrid"
	IntentNone        = "none"
)

// Result is the outcome of one orchestrated turn.
type Result struct {
	// Success is false only when intent classification failed; every later
	// stage degrades instead of aborting.
	Success bool `json:"success"`
	// UserID echoes the requesting user.
	UserID string `json:"user_id"`
	// Intent is the matched routing category (transaction, product, hybrid
	// or none).
	Intent string `json:"intent"`
	// RawIntent is the classifier's keyword output as stored in thread state.
	RawIntent string `json:"raw_intent,omitempty"`
	// FinalResponse is the synthesized reply for the user.
	FinalResponse string `json:"final_response,omitempty"`
	// Error describes the classification failure when Success is false.
	Error string `json:"error,omitempty"`
}

// Options configures an Orchestrator.
type Options struct {
	// AppName scopes thread keys and long-term memory.
	AppName string
	// Model is the default provider for every role.
	Model model.Model
	// RoleModels overrides the model per role.
	RoleModels map[core.Role]model.Model
	// Prompts supplies instructions and intent vocabulary (embedded defaults
	// when nil).
	Prompts *prompt.Config
	// BankingStore backs the structured-data toolset.
	BankingStore store.Store
	// Searcher backs the retrieval toolset.
	Searcher retrieval.Searcher
	// ThreadStore persists per-role conversations.
	ThreadStore core.ThreadStore
	// MemoryStore receives the post-turn write-through.
	MemoryStore core.MemoryStore
	// Logger for structured diagnostics.
	Logger logging.Logger
	// Timeout bounds each agent invocation (0 disables).
	Timeout time.Duration
	// MaxModelCalls bounds model calls per invocation.
	MaxModelCalls int
	// SynthesizerTemperature overrides the synthesizer's sampling
	// temperature (default 0.7).
	SynthesizerTemperature *float64
}

// Orchestrator coordinates the fixed four-agent pipeline. Safe for concurrent
// use; every user/role pair gets its own thread.
type Orchestrator struct {
	appName    string
	exec       *executor.Executor
	vocabulary prompt.Vocabulary
	logger     logging.Logger

	orchestrator *agent.Agent
	structured   *agent.Agent
	retrieval    *agent.Agent
	synthesizer  *agent.Agent
}

// New builds an Orchestrator. A default Model (or a complete RoleModels map)
// is required; everything else has working in-memory defaults.
func New(optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		AppName:       DefaultAppName,
		ThreadStore:   session.NewInMemoryStore(),
		MemoryStore:   memory.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
		Timeout:       2 * time.Minute,
		MaxModelCalls: 10,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Prompts == nil {
		prompts, err := prompt.Load("")
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		opts.Prompts = prompts
	}
	if opts.BankingStore == nil {
		opts.BankingStore = inmem.NewWithFixtures()
	}
	if opts.Searcher == nil {
		opts.Searcher = retrieval.NewKeywordSearcher(retrieval.DefaultCorpus()...)
	}

	modelFor := func(role core.Role) (model.Model, error) {
		if m, ok := opts.RoleModels[role]; ok && m != nil {
			return m, nil
		}
		if opts.Model == nil {
			return nil, fmt.Errorf("no model configured for role %s", role)
		}
		return opts.Model, nil
	}

	orchModel, err := modelFor(core.RoleOrchestrator)
	if err != nil {
		return nil, err
	}
	dataModel, err := modelFor(core.RoleStructuredData)
	if err != nil {
		return nil, err
	}
	retrModel, err := modelFor(core.RoleRetrieval)
	if err != nil {
		return nil, err
	}
	synthModel, err := modelFor(core.RoleSynthesizer)
	if err != nil {
		return nil, err
	}

	orch, err := agent.NewOrchestrator(orchModel, opts.Prompts)
	if err != nil {
		return nil, err
	}
	structured, err := agent.NewStructuredDataAgent(dataModel, opts.Prompts, opts.BankingStore)
	if err != nil {
		return nil, err
	}
	retr, err := agent.NewRetrievalAgent(retrModel, opts.Prompts, opts.Searcher)
	if err != nil {
		return nil, err
	}
	synth, err := agent.NewSynthesizer(synthModel, opts.Prompts, func(ro *agent.RosterOptions) {
		ro.SynthesizerTemperature = opts.SynthesizerTemperature
	})
	if err != nil {
		return nil, err
	}

	exec := executor.New(func(o *executor.Options) {
		o.ThreadStore = opts.ThreadStore
		o.MemoryStore = opts.MemoryStore
		o.Logger = opts.Logger
		o.Timeout = opts.Timeout
		o.MaxModelCalls = opts.MaxModelCalls
	})

	return &Orchestrator{
		appName:      opts.AppName,
		exec:         exec,
		vocabulary:   opts.Prompts.IntentVocabulary(),
		logger:       opts.Logger,
		orchestrator: orch,
		structured:   structured,
		retrieval:    retr,
		synthesizer:  synth,
	}, nil
}

// Executor exposes the underlying executor, mainly for inspection in tests
// and interactive tooling.
func (o *Orchestrator) Executor() *executor.Executor { return o.exec }

// Orchestrate runs one full turn for userID's query. Only classification
// failure produces Success == false; specialist and synthesis failures
// degrade into the final response.
func (o *Orchestrator) Orchestrate(ctx context.Context, userID, query string) Result {
	result := Result{UserID: userID}

	rawIntent, err := o.classify(ctx, userID, query)
	if err != nil {
		o.logger.Error("orchestration.classify.failed", "user_id", userID, "error", err.Error())
		result.Error = fmt.Sprintf("intent classification failed: %v", err)
		return result
	}
	result.Success = true
	result.RawIntent = rawIntent

	intent := o.route(rawIntent)
	result.Intent = intent

	o.logger.Info("orchestration.routed", "user_id", userID, "intent", intent, "raw_intent", rawIntent)

	var structuredData, productInfo string

	if intent == IntentTransaction || intent == IntentHybrid {
		structuredData = o.invokeSpecialist(ctx, o.structured, userID, query,
			"Error retrieving transaction data: %v")
	}
	if intent == IntentProduct || intent == IntentHybrid {
		productInfo = o.invokeSpecialist(ctx, o.retrieval, userID, query,
			"Error retrieving product information: %v")
	}

	result.FinalResponse = o.synthesize(ctx, userID, query, rawIntent, structuredData, productInfo)

	return result
}

// classify runs the orchestrator agent and returns the committed intent.
// An empty intent is valid and routes to none.
func (o *Orchestrator) classify(ctx context.Context, userID, query string) (string, error) {
	turn, err := o.exec.RunSync(ctx, o.orchestrator, o.key(userID, core.RoleOrchestrator), query)
	if err != nil {
		return "", err
	}
	return turn.Output, nil
}

// route maps classifier keywords to a category. A category matches when its
// word bag shares more than one distinct word with the intent; the first
// match in transaction, product, hybrid order wins.
func (o *Orchestrator) route(rawIntent string) string {
	intentWords := normalizeWords(rawIntent)
	if len(intentWords) == 0 {
		return IntentNone
	}

	categories := []struct {
		name string
		bag  []string
	}{
		{IntentTransaction, o.vocabulary.Transaction},
		{IntentProduct, o.vocabulary.Product},
		{IntentHybrid, o.vocabulary.Hybrid},
	}

	for _, category := range categories {
		overlap := 0
		seen := map[string]bool{}
		for _, w := range category.bag {
			w = strings.ToLower(w)
			if seen[w] {
				continue
			}
			seen[w] = true
			if intentWords[w] {
				overlap++
			}
		}
		if overlap > 1 {
			return category.name
		}
	}
	return IntentNone
}

// invokeSpecialist runs one specialist and absorbs its failure into a
// user-visible error line so synthesis always proceeds.
func (o *Orchestrator) invokeSpecialist(ctx context.Context, ag *agent.Agent, userID, query, failureFormat string) string {
	turn, err := o.exec.RunSync(ctx, ag, o.key(userID, ag.Role()), query)
	if err != nil {
		o.logger.Warn("orchestration.specialist.failed", "agent", ag.Name(), "user_id", userID, "error", err.Error())
		return fmt.Sprintf(failureFormat, err)
	}
	return turn.FinalText
}

// synthesize composes the final reply from the gathered sections. A specialist
// that produced no text contributes no section. The synthesizer's own failure
// degrades to a fixed apology.
func (o *Orchestrator) synthesize(ctx context.Context, userID, query, rawIntent, structuredData, productInfo string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original User Query: %s\nDetected Intent: %s\n", query, rawIntent)
	if structuredData != "" {
		fmt.Fprintf(&b, "\n--- Transaction Data ---\n%s\n", structuredData)
	}
	if productInfo != "" {
		fmt.Fprintf(&b, "\n--- Product Information ---\n%s\n", productInfo)
	}
	b.WriteString("\nPlease synthesize a final, natural response for the user.")

	turn, err := o.exec.RunSync(ctx, o.synthesizer, o.key(userID, core.RoleSynthesizer), b.String())
	if err != nil {
		o.logger.Warn("orchestration.synthesis.failed", "user_id", userID, "error", err.Error())
		return synthesisApology
	}
	return turn.FinalText
}

func (o *Orchestrator) key(userID string, role core.Role) core.ThreadKey {
	return core.ThreadKey{App: o.appName, UserID: userID, Role: role}
}

// normalizeWords lowercases, strips punctuation and splits into a word set.
func normalizeWords(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w != "" {
			words[w] = true
		}
	}
	return words
}
