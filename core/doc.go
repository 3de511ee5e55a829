// Package core provides the foundational domain types and execution contexts
// shared by the bankdesk engine. It defines:
//
//   - Threads (per-role conversational containers with event history and state)
//   - Events (immutable communication records with polymorphic parts)
//   - RunContext / ToolContext (scoped execution and tool sandboxing)
//   - Pluggable stores for thread state and long-term memory recall
//
// The package keeps implementation concerns (persistence backends, the
// executor, the orchestration controller) out of scope, exposing small
// interfaces so backends can be swapped.
package core
