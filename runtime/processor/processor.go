// Package processor is the thin front door of the runtime: it initializes
// agents, matches intent, asks the configured planner for a plan, executes it
// and shapes the response. It performs no domain logic of its own.
package processor

import (
	"context"
	"fmt"

	"github.com/enerflow/enerflow/runtime/engine"
	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/intent"
	"github.com/enerflow/enerflow/runtime/planner"
	"github.com/enerflow/enerflow/runtime/telemetry"
)

type (
	// Options configures processor construction. Engine, Matcher and
	// Planner are required; a nil Logger is substituted with a no-op.
	Options struct {
		Engine  *engine.Engine
		Matcher *intent.Matcher
		Planner planner.Planner
		Logger  telemetry.Logger
	}

	// Processor composes matcher, planner and engine.
	Processor struct {
		engine  *engine.Engine
		matcher *intent.Matcher
		planner planner.Planner
		logger  telemetry.Logger
	}

	// Response is the user-visible outcome of one request.
	Response struct {
		// WorkflowID identifies the execution.
		WorkflowID string `json:"workflow_id"`
		// Intent is the matcher's verdict.
		Intent intent.Match `json:"intent"`
		// PlanningMethod and PlanningReason record how the plan was chosen.
		PlanningMethod planner.Method `json:"planning_method"`
		PlanningReason string         `json:"planning_reason"`
		// StepCount is the number of planned steps.
		StepCount int `json:"step_count"`
		// Status is the workflow's terminal status.
		Status engine.Status `json:"status"`
		// Results maps 1-based "step_N" keys to step outcomes.
		Results map[string]engine.StepResult `json:"results"`
		// Error carries the terminating failure message when failed.
		Error string `json:"error,omitempty"`
		// Summary is a short human-readable account of what happened.
		Summary string `json:"summary"`
	}
)

// New constructs a processor.
func New(opts Options) (*Processor, error) {
	if opts.Engine == nil {
		return nil, fault.New(fault.ConfigError, "processor requires an engine")
	}
	if opts.Matcher == nil {
		return nil, fault.New(fault.ConfigError, "processor requires an intent matcher")
	}
	if opts.Planner == nil {
		return nil, fault.New(fault.ConfigError, "processor requires a planner")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Processor{
		engine:  opts.Engine,
		matcher: opts.Matcher,
		planner: opts.Planner,
		logger:  logger,
	}, nil
}

// Process serves one free-form request end to end.
func (p *Processor) Process(ctx context.Context, text string) (*Response, error) {
	// Idempotent across calls; already-initialized agents are reused.
	p.engine.InitializeAll(ctx)

	match := p.matcher.Match(text)
	p.logger.Debug(ctx, "intent matched", "intent", string(match.Intent), "confidence", match.Confidence)

	req := planner.Request{Text: text, Match: match, Agents: p.engine.AgentInfos()}
	plan, err := p.planner.Plan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("plan request: %w", err)
	}

	// The execution gets its own identifier; plan IDs name planning events.
	if plan.Status != planner.StatusNoAgents {
		plan.WorkflowID = planner.NewWorkflowID("wf")
	}
	res := p.engine.ExecuteWorkflow(ctx, plan)

	resp := &Response{
		WorkflowID:     res.WorkflowID,
		Intent:         match,
		PlanningMethod: plan.Method,
		PlanningReason: plan.Reason,
		StepCount:      len(plan.Steps),
		Status:         res.Status,
		Results:        res.Results,
		Summary:        summarize(match, plan, res),
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp, nil
}

func summarize(match intent.Match, plan *planner.Plan, res *engine.Result) string {
	if plan.Status == planner.StatusNoAgents {
		return "no agents were available to serve the request"
	}
	completed := 0
	for _, sr := range res.Results {
		if sr.Err == nil {
			completed++
		}
	}
	if res.Status == engine.StatusCompleted {
		return fmt.Sprintf("completed %d of %d steps for intent %s via %s planning",
			completed, len(plan.Steps), match.Intent, plan.Method)
	}
	return fmt.Sprintf("failed after completing %d of %d steps for intent %s: %s",
		completed, len(plan.Steps), match.Intent, res.Err.Error())
}
