// Package planner defines the workflow plan model and the Planner contract
// the rule, model, hybrid and adaptive implementations satisfy. Hybrid and
// adaptive planners compose the others by reference.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/intent"
)

// Method identifies how a plan was produced.
type Method string

const (
	// MethodRule marks deterministic keyword-and-regex planning.
	MethodRule Method = "rule_based"
	// MethodLearning marks model-generated planning.
	MethodLearning Method = "learning_based"
	// MethodHybrid marks primary/secondary composition.
	MethodHybrid Method = "hybrid"
	// MethodAuto marks adaptive method selection.
	MethodAuto Method = "auto"
)

// Plan statuses.
const (
	// StatusReady marks an executable plan; its steps are non-empty and
	// every (agent, tool) pair resolves against the available set.
	StatusReady = "ready"
	// StatusNoAgents marks the guard plan returned when no agents are
	// available.
	StatusNoAgents = "no_agents"
)

// NoAgentsWorkflowID is the fixed workflow ID of the no-agents guard plan.
const NoAgentsWorkflowID = "no_agents_workflow"

type (
	// Plan is an ordered sequence of steps binding agents, tools and
	// parameters.
	Plan struct {
		// WorkflowID uniquely identifies the planning event.
		WorkflowID string `json:"workflow_id"`
		// Status is StatusReady or StatusNoAgents.
		Status string `json:"status"`
		// Method records how the plan was produced.
		Method Method `json:"planning_method"`
		// Reason describes how the plan was chosen, including detected
		// versus defaulted entities.
		Reason string `json:"planning_reason"`
		// Steps run in declared order.
		Steps []Step `json:"steps"`
	}

	// Step is one plan entry.
	Step struct {
		// Index is the 0-based position within the plan.
		Index int `json:"step_index"`
		// Agent names a registered agent.
		Agent string `json:"agent"`
		// Tool names a tool of that agent.
		Tool string `json:"tool"`
		// Parameters holds literal values and Placeholder references.
		Parameters map[string]any `json:"parameters,omitempty"`
		// Timeout overrides the engine's default step deadline when positive.
		Timeout time.Duration `json:"-"`
	}

	// AgentInfo describes an available agent to planners.
	AgentInfo struct {
		// Name is the agent's registry name.
		Name string `json:"name"`
		// Tools lists the agent's tool table.
		Tools []ToolInfo `json:"tools"`
	}

	// ToolInfo describes one tool of an available agent.
	ToolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	// Request carries everything a planner needs for one planning event.
	Request struct {
		// Text is the raw request.
		Text string
		// Match is the intent matcher's verdict.
		Match intent.Match
		// Agents is the set of initialized agents and their tools.
		Agents []AgentInfo
	}
)

// Planner turns a request into a workflow plan.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Plan, error)
}

// ModelClient abstracts an external text-generation provider so planners can
// be tested with deterministic fakes.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HasAgent reports whether name is among the available agents.
func (r Request) HasAgent(name string) bool {
	for _, a := range r.Agents {
		if a.Name == name {
			return true
		}
	}
	return false
}

// HasTool reports whether the named agent exposes the named tool.
func (r Request) HasTool(agentName, tool string) bool {
	for _, a := range r.Agents {
		if a.Name != agentName {
			continue
		}
		for _, t := range a.Tools {
			if t.Name == tool {
				return true
			}
		}
	}
	return false
}

// AgentNames returns the available agent names in sorted order.
func (r Request) AgentNames() []string {
	names := make([]string, 0, len(r.Agents))
	for _, a := range r.Agents {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// NewWorkflowID mints a workflow identifier with the given prefix.
func NewWorkflowID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Validate checks that a plan is executable against the request's available
// agents: the no-agents guard plan passes as-is; anything else needs a
// workflow ID, at least one step, and every (agent, tool) pair present.
func Validate(p *Plan, req Request) error {
	if p == nil {
		return fault.New(fault.PlanInvalid, "plan is nil")
	}
	if p.Status == StatusNoAgents {
		return nil
	}
	if p.WorkflowID == "" {
		return fault.New(fault.PlanInvalid, "plan has no workflow_id")
	}
	if len(p.Steps) == 0 {
		return fault.New(fault.PlanInvalid, "plan has no steps")
	}
	for _, s := range p.Steps {
		if !req.HasAgent(s.Agent) {
			return fault.Newf(fault.PlanInvalid, "step %d references unknown agent %q", s.Index, s.Agent)
		}
		if !req.HasTool(s.Agent, s.Tool) {
			return fault.Newf(fault.PlanInvalid, "step %d references unknown tool %q of agent %q", s.Index, s.Tool, s.Agent)
		}
	}
	return nil
}

// Placeholder references a field of an earlier step's output. It is a tagged
// type distinct from string so the resolver can tell references from literal
// text; it renders as "step_{i}.{field}" with a 1-based step number.
type Placeholder struct {
	// Step is the 1-based number of the producing step.
	Step int
	// Field is a top-level field of the producing step's decoded output.
	Field string
}

var placeholderRe = regexp.MustCompile(`^step_(\d+)\.([A-Za-z0-9_]+)$`)

// Ref constructs a placeholder for the given 1-based step and field.
func Ref(step int, field string) Placeholder {
	return Placeholder{Step: step, Field: field}
}

// String renders the placeholder in its wire form.
func (p Placeholder) String() string {
	return fmt.Sprintf("step_%d.%s", p.Step, p.Field)
}

// MarshalJSON encodes the placeholder as its wire string.
func (p Placeholder) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// ParsePlaceholder decodes the wire form back into a Placeholder. Returns
// false for anything that is not exactly "step_{i}.{field}".
func ParsePlaceholder(s string) (Placeholder, bool) {
	m := placeholderRe.FindStringSubmatch(s)
	if m == nil {
		return Placeholder{}, false
	}
	step, err := strconv.Atoi(m[1])
	if err != nil || step < 1 {
		return Placeholder{}, false
	}
	return Placeholder{Step: step, Field: m[2]}, true
}

// RevivePlaceholders walks a parameter map decoded from JSON and replaces
// string values of the placeholder wire form with Placeholder values. Used
// when plans arrive from a model response or a cache round-trip.
func RevivePlaceholders(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = reviveValue(v)
	}
	return out
}

func reviveValue(v any) any {
	switch val := v.(type) {
	case string:
		if ph, ok := ParsePlaceholder(val); ok {
			return ph
		}
		return val
	case map[string]any:
		return RevivePlaceholders(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = reviveValue(item)
		}
		return out
	default:
		return v
	}
}
