// Package agent contains the model-backed agent abstraction and the fixed
// customer-service roster. The package focuses on three concerns:
//
//  1. Agent construction: model, role, instruction, toolset, output key
//  2. Instruction resolution (static text or state-derived providers)
//  3. The roster constructors binding prompt configuration to the four roles
//     (orchestrator, structured-data, retrieval, synthesizer)
//
// Agents hold no execution logic themselves; the executor package drives the
// model turn loop and tool dispatch. This keeps agents immutable and safe for
// concurrent invocations.
package agent
