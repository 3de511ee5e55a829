// Package bankdesk provides a high-level facade over the orchestration
// controller and its services (threads, long-term memory, banking data and
// knowledge retrieval) for building bank customer-service assistants. Most
// applications interact with this package by:
//  1. Creating an Engine via New() with a model provider (optionally
//     overriding the default in-memory stores)
//  2. Calling Ask for each user query
//
// The facade delegates the classify / route / synthesize pipeline to
// orchestration.Orchestrator while keeping setup concise. All defaults are
// safe for local development and testing; production deployments typically
// supply a Postgres-backed banking store and a structured logger.
package bankdesk

import (
	"context"

	"github.com/bankdesk/bankdesk/executor"
	"github.com/bankdesk/bankdesk/orchestration"
)

// Options aliases the orchestration options so callers configure the facade
// with a single option set.
type Options = orchestration.Options

// Result is the outcome of one orchestrated turn.
type Result = orchestration.Result

// Engine is the high-level facade aggregating the orchestration controller
// and its underlying services.
type Engine struct {
	orch *orchestration.Orchestrator
}

// New creates an Engine. A default Model (or a complete RoleModels map) is
// required; any unset store is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Engine, error) {
	orch, err := orchestration.New(optFns...)
	if err != nil {
		return nil, err
	}
	return &Engine{orch: orch}, nil
}

// Ask runs one full customer-service turn for userID's query.
func (e *Engine) Ask(ctx context.Context, userID, query string) Result {
	return e.orch.Orchestrate(ctx, userID, query)
}

// Orchestrator returns the underlying controller for advanced use.
func (e *Engine) Orchestrator() *orchestration.Orchestrator { return e.orch }

// Executor returns the underlying agent executor, giving access to the
// thread and memory stores.
func (e *Engine) Executor() *executor.Executor { return e.orch.Executor() }
