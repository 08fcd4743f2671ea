// Package learning implements model-backed planning. The planner prompts an
// external provider through the ModelClient seam, parses the response as a
// JSON plan and validates it against the available agents. Every failure
// mode, from missing credentials to unparseable output, falls back to the
// rule planner with a reason naming the failure.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/planner"
	"github.com/enerflow/enerflow/runtime/telemetry"
)

// Planner consults a ModelClient and falls back to a deterministic planner
// on any failure.
type Planner struct {
	client   planner.ModelClient
	fallback planner.Planner
	logger   telemetry.Logger
}

// New constructs a learning planner. The fallback is required; a nil client
// (e.g. missing credentials) routes every request through it.
func New(client planner.ModelClient, fallback planner.Planner, logger telemetry.Logger) (*Planner, error) {
	if fallback == nil {
		return nil, fault.New(fault.ConfigError, "learning planner requires a fallback planner")
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Planner{client: client, fallback: fallback, logger: logger}, nil
}

// Plan asks the model for a plan, validating its output before returning it.
func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Plan, error) {
	if len(req.Agents) == 0 {
		return p.fallback.Plan(ctx, req)
	}
	if p.client == nil {
		return p.fallbackPlan(ctx, req, "model client not configured (missing credentials)")
	}

	out, err := p.client.Generate(ctx, buildPrompt(req))
	if err != nil {
		p.logger.Warn(ctx, "model planning failed", "error", err.Error())
		return p.fallbackPlan(ctx, req, fmt.Sprintf("model call failed: %v", err))
	}

	plan, err := parsePlan(out)
	if err != nil {
		p.logger.Warn(ctx, "model plan rejected", "error", err.Error())
		return p.fallbackPlan(ctx, req, fmt.Sprintf("model response invalid: %v", err))
	}
	if err := planner.Validate(plan, req); err != nil {
		p.logger.Warn(ctx, "model plan rejected", "error", err.Error())
		return p.fallbackPlan(ctx, req, fmt.Sprintf("model plan failed validation: %v", err))
	}

	plan.Method = planner.MethodLearning
	plan.Status = planner.StatusReady
	plan.Reason = fmt.Sprintf("model-generated plan with %d steps validated against %d agents",
		len(plan.Steps), len(req.Agents))
	return plan, nil
}

func (p *Planner) fallbackPlan(ctx context.Context, req planner.Request, why string) (*planner.Plan, error) {
	plan, err := p.fallback.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	plan.Method = planner.MethodRule
	plan.Reason = fmt.Sprintf("model planner fallback (%s); %s", why, plan.Reason)
	return plan, nil
}

// buildPrompt renders the request and the agent tool tables into the planning
// prompt.
func buildPrompt(req planner.Request) string {
	var sb strings.Builder
	sb.WriteString("You plan workflows for an energy services runtime.\n")
	sb.WriteString("Available agents and tools:\n")
	for _, a := range req.Agents {
		fmt.Fprintf(&sb, "- %s:\n", a.Name)
		for _, t := range a.Tools {
			fmt.Fprintf(&sb, "  - %s: %s\n", t.Name, t.Description)
		}
	}
	fmt.Fprintf(&sb, "Detected intent: %s (confidence %.2f)\n", req.Match.Intent, req.Match.Confidence)
	fmt.Fprintf(&sb, "Request: %s\n", req.Text)
	sb.WriteString(`Respond with JSON only, matching:
{"workflow_id": "<id>", "steps": [{"step_index": 0, "agent": "<agent>", "tool": "<tool>", "parameters": {}}]}
Reference earlier outputs with "step_<n>.<field>" placeholder strings (1-based).
`)
	return sb.String()
}

// parsePlan decodes the model response into a plan, stripping code fences and
// reviving placeholder strings into tagged references.
func parsePlan(out string) (*planner.Plan, error) {
	raw := stripFences(out)
	var wire struct {
		WorkflowID string `json:"workflow_id"`
		Steps      []struct {
			Index      int            `json:"step_index"`
			Agent      string         `json:"agent"`
			Tool       string         `json:"tool"`
			Parameters map[string]any `json:"parameters"`
		} `json:"steps"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fault.Wrap(fault.PlanInvalid, "response is not a JSON plan", err)
	}
	if wire.WorkflowID == "" {
		return nil, fault.New(fault.PlanInvalid, "plan is missing workflow_id")
	}
	if len(wire.Steps) == 0 {
		return nil, fault.New(fault.PlanInvalid, "plan has no steps")
	}
	steps := make([]planner.Step, len(wire.Steps))
	for i, s := range wire.Steps {
		steps[i] = planner.Step{
			Index:      i,
			Agent:      s.Agent,
			Tool:       s.Tool,
			Parameters: planner.RevivePlaceholders(s.Parameters),
		}
	}
	return &planner.Plan{WorkflowID: wire.WorkflowID, Steps: steps}, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(out string) string {
	trimmed := strings.TrimSpace(out)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
