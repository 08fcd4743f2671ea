// Package system implements the system agent: clock access and scope
// checking for requests the runtime does not serve.
package system

import (
	"context"
	"time"

	"github.com/enerflow/enerflow/runtime/agent"
)

// Name is the agent's registry name.
const Name = "system"

// Agent serves runtime-level tools that need no external dependencies.
type Agent struct {
	*agent.Base
	clock func() time.Time
}

// New constructs the system agent with the wall clock.
func New() *Agent {
	return NewWithClock(time.Now)
}

// NewWithClock constructs the agent with an injected clock for tests.
func NewWithClock(clock func() time.Time) *Agent {
	return &Agent{Base: agent.NewBase(Name), clock: clock}
}

// Factory is the registry factory for the system agent.
func Factory(context.Context) (agent.Agent, error) {
	return New(), nil
}

// Init registers the agent's tools.
func (a *Agent) Init(context.Context) error {
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "get_current_time",
		Description: "Returns the current time and date in UTC.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{"type": "string"},
			},
		},
		Handler: a.getCurrentTime,
	}); err != nil {
		return err
	}
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "scope_check",
		Description: "Explains whether a request falls within the runtime's supported topics.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":              map[string]any{"type": "string"},
				"supported_topics":   map[string]any{"type": "array"},
				"unsupported_topics": map[string]any{"type": "array"},
			},
			"required": []any{"query"},
		},
		Handler: a.scopeCheck,
	}); err != nil {
		return err
	}
	a.SetState(agent.StateReady)
	return nil
}

func (a *Agent) getCurrentTime(_ context.Context, _ map[string]any) (map[string]any, error) {
	now := a.clock().UTC()
	return map[string]any{
		"current_time": now.Format(time.RFC3339),
		"date":         now.Format("2006-01-02"),
		"timezone":     "UTC",
		"unix":         now.Unix(),
	}, nil
}

func (a *Agent) scopeCheck(_ context.Context, params map[string]any) (map[string]any, error) {
	query, _ := params["query"].(string)
	out := map[string]any{
		"in_scope": false,
		"query":    query,
		"message":  "This request is outside the runtime's energy services scope.",
	}
	if topics, ok := params["supported_topics"]; ok {
		out["supported_topics"] = topics
	}
	if topics, ok := params["unsupported_topics"]; ok {
		out["unsupported_topics"] = topics
	}
	return out, nil
}
