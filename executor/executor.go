// Package executor drives agent invocations: it owns the model turn loop,
// tool dispatch, event persistence ordering and the long-term memory
// write-through that follows every turn.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bankdesk/bankdesk/agent"
	"github.com/bankdesk/bankdesk/core"
	"github.com/bankdesk/bankdesk/internal/util"
	"github.com/bankdesk/bankdesk/logging"
	"github.com/bankdesk/bankdesk/memory"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/session"
)

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls bounds model calls per invocation (0 = unlimited).
	MaxModelCalls int
	// Timeout bounds one invocation end to end (0 disables).
	Timeout time.Duration
	// MemoryPreloadLimit caps preloaded memory entries per invocation.
	MemoryPreloadLimit int
	// ThreadStore persists per-role conversation threads.
	ThreadStore core.ThreadStore
	// MemoryStore receives the write-through after every invocation.
	MemoryStore core.MemoryStore
	// Logger for structured diagnostics.
	Logger logging.Logger
}

// Executor coordinates agent execution: it resolves threads, streams events,
// applies state deltas before events become visible, and persists history.
// Public methods are safe for concurrent use.
type Executor struct {
	eventBufferSize    int
	maxModelCalls      int
	timeout            time.Duration
	memoryPreloadLimit int

	threadStore core.ThreadStore
	memoryStore core.MemoryStore
	logger      logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs an Executor with optional overrides.
func New(optFns ...func(o *Options)) *Executor {
	opts := Options{
		EventBufferSize:    100,
		MaxModelCalls:      10,
		Timeout:            2 * time.Minute,
		MemoryPreloadLimit: 5,
		ThreadStore:        session.NewInMemoryStore(),
		MemoryStore:        memory.NewInMemoryStore(),
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		eventBufferSize:    opts.EventBufferSize,
		maxModelCalls:      opts.MaxModelCalls,
		timeout:            opts.Timeout,
		memoryPreloadLimit: opts.MemoryPreloadLimit,
		threadStore:        opts.ThreadStore,
		memoryStore:        opts.MemoryStore,
		logger:             opts.Logger,
		activeRuns:         make(map[string]context.CancelFunc),
	}
}

// ThreadStore exposes the configured thread store for callers that need to
// inspect committed state after a run.
func (e *Executor) ThreadStore() core.ThreadStore { return e.threadStore }

// MemoryStore exposes the configured memory store.
func (e *Executor) MemoryStore() core.MemoryStore { return e.memoryStore }

// Run starts an asynchronous invocation of ag on the thread identified by key.
// The returned event stream is forward-only: events arrive in emission order
// and the channel closes after the final event. Errors arrive on the second
// channel; both close when the invocation finishes.
func (e *Executor) Run(
	ctx context.Context,
	ag *agent.Agent,
	key core.ThreadKey,
	input string,
) (string, <-chan core.Event, <-chan error, error) {
	thread, err := e.threadStore.GetOrCreate(key)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to resolve thread: %w", err)
	}

	invocationID := core.NewID()

	eventsCh := make(chan core.Event, e.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, e.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	var cancel context.CancelFunc
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	e.mu.Lock()
	e.activeRuns[invocationID] = cancel
	e.mu.Unlock()

	userContent := core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: input}}}

	runCtx := core.NewRunContext(
		ctx,
		key,
		invocationID,
		ag.Info(),
		userContent,
		e.maxModelCalls,
		agentEmit,
		resumeCh,
		thread,
		e.threadStore,
		e.memoryStore,
		e.logger,
	)

	userEvent := core.NewUserMessageEvent(invocationID, input)
	if err := e.threadStore.AppendEvent(key, userEvent); err != nil {
		cancel()
		e.mu.Lock()
		delete(e.activeRuns, invocationID)
		e.mu.Unlock()
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	agentDone := make(chan struct{})

	go func() {
		defer func() {
			close(agentEmit)
			close(agentDone)
			e.mu.Lock()
			delete(e.activeRuns, invocationID)
			e.mu.Unlock()
		}()

		if err := e.runAgent(runCtx, ag); err != nil {
			// Buffered; deliver even when the failure is the cancellation
			// itself (timeout) so callers observe the cause.
			select {
			case errorsCh <- fmt.Errorf("agent %s failed: %w", ag.Name(), err):
			default:
			}
		}
	}()

	go func() {
		defer func() {
			// The agent goroutine sends on errorsCh while unwinding, so the
			// channels stay open until it has exited. Cancel first to unblock
			// it when the processor left early on Done.
			cancel()
			<-agentDone
			e.writeThroughMemory(key)
			close(eventsCh)
			close(errorsCh)
		}()

		e.processEvents(runCtx, key, agentEmit, resumeCh, eventsCh, errorsCh)
	}()

	return invocationID, eventsCh, errorsCh, nil
}

// Cancel aborts a running invocation by ID.
func (e *Executor) Cancel(invocationID string) error {
	e.mu.Lock()
	cancel, exists := e.activeRuns[invocationID]
	e.mu.Unlock()

	if !exists {
		return fmt.Errorf("invocation %s not found", invocationID)
	}

	cancel()

	return nil
}

// Turn is the result of a synchronous invocation.
type Turn struct {
	// InvocationID correlates the turn with its event log.
	InvocationID string
	// FinalText is the agent's final response text ("" if the agent produced
	// only tool traffic or failed).
	FinalText string
	// Output is the committed output-key value read back from the thread
	// after the run ("" when the agent has no output key).
	Output string
	// Events holds every non-partial event of the invocation in order.
	Events []core.Event
}

// RunSync invokes ag and blocks until the invocation completes, returning the
// collected turn. The thread and memory stores are updated as in Run.
func (e *Executor) RunSync(ctx context.Context, ag *agent.Agent, key core.ThreadKey, input string) (*Turn, error) {
	invocationID, events, errs, err := e.Run(ctx, ag, key, input)
	if err != nil {
		return nil, err
	}

	turn := &Turn{InvocationID: invocationID}
	for ev := range events {
		if ev.IsPartial() {
			continue
		}
		turn.Events = append(turn.Events, ev)
		if ev.IsFinalResponse() && ev.Text() != "" {
			turn.FinalText = ev.Text()
		}
	}
	if runErr := <-errs; runErr != nil {
		return nil, runErr
	}

	if outputKey := ag.OutputKey(); outputKey != "" {
		if thread, err := e.threadStore.Get(key); err == nil {
			if v, ok := thread.GetState(outputKey); ok {
				turn.Output, _ = v.(string)
			}
		}
	}

	return turn, nil
}

// runAgent executes model turns until a final response. Tool responses feed
// the next turn; anything else terminates the loop.
func (e *Executor) runAgent(runCtx *core.RunContext, ag *agent.Agent) error {
	for {
		last, err := e.runTurn(runCtx, ag)
		if err != nil {
			return err
		}
		if last == nil {
			return nil
		}
		if len(last.GetFunctionResponses()) > 0 {
			continue
		}
		return nil
	}
}

// runTurn performs one model call including any tool executions and returns
// the last emitted event. A nil event signals termination without output.
func (e *Executor) runTurn(runCtx *core.RunContext, ag *agent.Agent) (*core.Event, error) {
	if err := runCtx.Limiter.Increment(); err != nil {
		return nil, err
	}

	// Reload so this turn sees tool responses appended by the previous one.
	if err := runCtx.RefreshThread(); err != nil {
		return nil, err
	}

	req, err := e.buildRequest(runCtx, ag)
	if err != nil {
		return nil, err
	}

	runCtx.LogDebug(
		"executor.model.call",
		"agent", ag.Name(),
		"invocation_id", runCtx.InvocationID,
		"call", runCtx.Limiter.Count(),
	)

	respCh, errCh := ag.LLM().Generate(runCtx.Context, *req)

	var lastEvent *core.Event

	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				// Providers may buffer a failure and then close both
				// channels; the error takes precedence over the close.
				if errCh != nil {
					select {
					case genErr, ok := <-errCh:
						if ok && genErr != nil {
							return lastEvent, fmt.Errorf("model call failed: %w", genErr)
						}
					default:
					}
				}
				return lastEvent, nil
			}

			ev, err := e.emitModelResponse(runCtx, ag, resp)
			if err != nil {
				return lastEvent, err
			}
			lastEvent = ev

			if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
				last, err := e.executeTools(runCtx, ag, fnCalls)
				if err != nil {
					return lastEvent, err
				}
				lastEvent = last
			}
		case genErr, ok := <-errCh:
			if ok && genErr != nil {
				return lastEvent, fmt.Errorf("model call failed: %w", genErr)
			}
			if !ok {
				errCh = nil
			}
		case <-runCtx.Done():
			return lastEvent, runCtx.Err()
		}
	}
}

// buildRequest assembles instructions, conversation window and tool
// declarations for one model call.
func (e *Executor) buildRequest(runCtx *core.RunContext, ag *agent.Agent) (*model.Request, error) {
	instructions, err := ag.ResolveInstruction(runCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve instruction: %w", err)
	}

	// Per-invocation placeholders like {user_id} resolve against thread state.
	if runCtx.Thread != nil {
		instructions = util.RenderPlaceholders(instructions, runCtx.Thread.StateSnapshot())
	}

	if ag.PreloadMemory() {
		if recall := e.preloadMemory(runCtx); recall != "" {
			instructions = instructions + "\n\n" + recall
		}
	}

	contents := []core.Content{{
		Role:  "system",
		Parts: []core.Part{core.TextPart{Text: instructions}},
	}}

	if runCtx.Thread != nil {
		events := runCtx.Thread.ConversationHistory()
		if max := ag.MaxHistoryMessages(); max > 0 && len(events) > max {
			events = events[len(events)-max:]
		}
		for _, ev := range events {
			if ev.Content != nil && len(ev.Content.Parts) > 0 {
				contents = append(contents, *ev.Content)
			}
		}
	}

	return &model.Request{
		Instructions: instructions,
		Contents:     contents,
		Tools:        ag.ToolDefinitions(),
		Temperature:  ag.Temperature(),
	}, nil
}

// preloadMemory renders relevant past conversation as prompt context.
func (e *Executor) preloadMemory(runCtx *core.RunContext) string {
	query := runCtx.UserContent.Text()
	results, err := runCtx.SearchMemory(query, e.memoryPreloadLimit)
	if err != nil || len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant past conversation:\n")
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// emitModelResponse converts a model response chunk into an event and emits
// it. For the final response of an output-key agent the key is staged first,
// so the state delta rides on the final event and is committed before the
// event becomes visible downstream.
func (e *Executor) emitModelResponse(runCtx *core.RunContext, ag *agent.Agent, resp model.Response) (*core.Event, error) {
	ev := core.NewEvent(runCtx.InvocationID, ag.Name())
	ev.Content = &resp.Content
	partial := resp.Partial
	ev.Partial = &partial

	if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
		complete := true
		ev.TurnComplete = &complete

		if key := ag.OutputKey(); key != "" && ev.Text() != "" {
			runCtx.SetState(key, ev.Text())
		}
	}

	if err := runCtx.EmitEvent(ev); err != nil {
		return nil, err
	}

	if !ev.IsPartial() {
		if err := runCtx.WaitForResume(); err != nil {
			return &ev, err
		}
	}

	return &ev, nil
}

// executeTools runs all requested function calls in order, emitting one
// function response event per call. Tool failures become response payloads
// rather than aborting the invocation.
func (e *Executor) executeTools(runCtx *core.RunContext, ag *agent.Agent, calls []core.FunctionCall) (*core.Event, error) {
	var lastEvent *core.Event

	for _, call := range calls {
		toolCtx := core.NewToolContext(runCtx, call.ID)

		start := time.Now()
		result, err := ag.ExecuteTool(toolCtx, call.Name, call.Arguments)
		e.logger.Info(
			"executor.tool.executed",
			"agent", ag.Name(),
			"tool", call.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)

		respEv := core.NewFunctionResponseEvent(ag.Name(), call.ID, call.Name, result, err)
		respEv.InvocationID = runCtx.InvocationID
		toolCtx.InternalApplyActions(&respEv)

		if err := runCtx.EmitEvent(respEv); err != nil {
			return lastEvent, err
		}
		if err := runCtx.WaitForResume(); err != nil {
			return &respEv, err
		}

		lastEvent = &respEv
	}

	return lastEvent, nil
}

// processEvents applies each event's side effects in order: state delta
// first, then history append, then delivery. The resume signal releases the
// agent only after persistence so emitted state is always readable.
func (e *Executor) processEvents(
	runCtx *core.RunContext,
	key core.ThreadKey,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-agentEmit:
			if !ok {
				return
			}
			if len(ev.Actions.StateDelta) > 0 {
				if err := e.threadStore.ApplyDelta(key, ev.Actions.StateDelta); err != nil {
					e.deliverError(runCtx, errorsCh, fmt.Errorf("failed to apply state delta: %w", err))
					return
				}
			}
			if !ev.IsPartial() {
				if err := e.threadStore.AppendEvent(key, ev); err != nil {
					e.deliverError(runCtx, errorsCh, fmt.Errorf("failed to append event: %w", err))
					return
				}
			}
			select {
			case <-runCtx.Done():
				return
			case eventsCh <- ev:
			}
			if !ev.IsPartial() {
				select {
				case <-runCtx.Done():
					return
				case resumeCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (e *Executor) deliverError(runCtx *core.RunContext, errorsCh chan<- error, err error) {
	select {
	case <-runCtx.Done():
	case errorsCh <- err:
	}
}

// writeThroughMemory snapshots the thread into long-term memory. It runs
// after every invocation, successful or not, so partial progress is still
// recallable by later turns.
func (e *Executor) writeThroughMemory(key core.ThreadKey) {
	if e.memoryStore == nil {
		return
	}

	thread, err := e.threadStore.Get(key)
	if err != nil {
		e.logger.Warn("executor.memory.load_failed", "error", err.Error())
		return
	}
	if err := e.memoryStore.AddThread(thread); err != nil {
		e.logger.Warn("executor.memory.write_failed", "error", err.Error())
	}
}
