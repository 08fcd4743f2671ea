// Package agent defines the contract every EnerFlow agent satisfies and a
// base implementation that supplies the tool table, input validation and the
// lifecycle state machine. Domain agents embed Base and register their tools
// during Init.
package agent

import "context"

// State describes where an agent is in its lifecycle.
type State string

const (
	// StateUninitialized is the state before Init has run.
	StateUninitialized State = "uninitialized"
	// StateReady means Init succeeded and all tools are available.
	StateReady State = "ready"
	// StateDegraded means Init completed without some dependency; only
	// dependency-free tools are registered.
	StateDegraded State = "degraded"
	// StateClosed is terminal. Invocations against a closed agent fail.
	StateClosed State = "closed"
)

// ToolHandler executes a single tool invocation. Parameters have already been
// validated against the tool's input schema when the handler runs.
type ToolHandler func(ctx context.Context, params map[string]any) (map[string]any, error)

// ToolDescriptor describes one tool an agent exposes.
type ToolDescriptor struct {
	// Name is the tool identifier unique within the agent.
	Name string
	// Description is a one-line summary surfaced to planners.
	Description string
	// InputSchema is an optional JSON schema (as a decoded document) that
	// invocation parameters are validated against.
	InputSchema map[string]any
	// Handler executes the tool.
	Handler ToolHandler
}

// Agent is the contract the registry and engine operate against.
type Agent interface {
	// Name returns the agent's registry name.
	Name() string
	// Init prepares the agent for invocations. It is called once by the
	// engine before the agent serves any tool call.
	Init(ctx context.Context) error
	// State reports the agent's lifecycle state.
	State() State
	// Tools returns the agent's tool table.
	Tools() map[string]ToolDescriptor
	// Invoke validates params against the tool's schema and runs its handler.
	Invoke(ctx context.Context, tool string, params map[string]any) (map[string]any, error)
	// Close releases agent resources. Idempotent.
	Close() error
}
