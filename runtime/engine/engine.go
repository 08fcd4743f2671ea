// Package engine drives workflow plans to completion. The engine owns the
// initialized agent instances and the in-memory execution table; steps within
// a workflow run strictly in order while independent workflows run in
// parallel up to a configured cap.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/enerflow/enerflow/runtime/agent"
	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/planner"
	"github.com/enerflow/enerflow/runtime/registry"
	"github.com/enerflow/enerflow/runtime/telemetry"
)

// Status describes a workflow execution.
type Status string

const (
	// StatusRunning means steps are still being dispatched.
	StatusRunning Status = "running"
	// StatusCompleted means every step finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means a step failed or the workflow was cancelled.
	StatusFailed Status = "failed"
	// StatusNotFound is the GetWorkflowStatus sentinel for unknown IDs.
	StatusNotFound Status = "not_found"
)

const defaultStepTimeout = 30 * time.Second

type (
	// Config bounds engine resource usage.
	Config struct {
		// MaxConcurrentWorkflows caps parallel ExecuteWorkflow calls;
		// saturated calls queue. Defaults to 4.
		MaxConcurrentWorkflows int
		// DefaultStepTimeout applies to steps without their own deadline.
		// Defaults to 30s.
		DefaultStepTimeout time.Duration
	}

	// Options configures engine construction. Nil telemetry fields are
	// substituted with no-op implementations.
	Options struct {
		Registry *registry.Registry
		Config   Config
		Logger   telemetry.Logger
		Metrics  telemetry.Metrics
		Tracer   telemetry.Tracer
	}

	// Engine executes workflow plans against initialized agents.
	Engine struct {
		reg     *registry.Registry
		cfg     Config
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer

		sem chan struct{}

		mu         sync.RWMutex
		agents     map[string]agent.Agent
		executions map[string]*execution
	}

	// execution is one row of the in-memory workflow table.
	execution struct {
		workflowID     string
		startedAt      time.Time
		status         Status
		stepsCompleted int
		totalSteps     int
	}

	// StepResult is the recorded outcome of one step.
	StepResult struct {
		// Agent and Tool identify what ran.
		Agent string `json:"agent"`
		Tool  string `json:"tool"`
		// Result holds the normalized tool output on success.
		Result map[string]any `json:"result,omitempty"`
		// Err holds the failure on error; nil on success.
		Err *fault.Error `json:"error,omitempty"`
	}

	// Result is the aggregate outcome of one workflow.
	Result struct {
		// WorkflowID identifies the execution.
		WorkflowID string `json:"workflow_id"`
		// Status is completed or failed.
		Status Status `json:"status"`
		// Results maps 1-based "step_N" keys to step outcomes. Partial
		// results survive failure.
		Results map[string]StepResult `json:"results"`
		// Err is the terminating failure when Status is failed.
		Err *fault.Error `json:"error,omitempty"`
	}

	// StatusSnapshot is the observable state of one workflow row.
	StatusSnapshot struct {
		WorkflowID     string    `json:"workflow_id"`
		Status         Status    `json:"status"`
		StepsCompleted int       `json:"steps_completed"`
		TotalSteps     int       `json:"total_steps"`
		StartedAt      time.Time `json:"started_at"`
	}

	// AgentStatus describes one initialized agent for callers.
	AgentStatus struct {
		Name  string             `json:"name"`
		State agent.State        `json:"state"`
		Tools []planner.ToolInfo `json:"tools"`
	}
)

// New constructs an engine over the given registry.
func New(opts Options) *Engine {
	cfg := opts.Config
	if cfg.MaxConcurrentWorkflows <= 0 {
		cfg.MaxConcurrentWorkflows = 4
	}
	if cfg.DefaultStepTimeout <= 0 {
		cfg.DefaultStepTimeout = defaultStepTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Engine{
		reg:        opts.Registry,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		sem:        make(chan struct{}, cfg.MaxConcurrentWorkflows),
		agents:     make(map[string]agent.Agent),
		executions: make(map[string]*execution),
	}
}

// InitializeAgents constructs and initializes the named agents via the
// registry. Failures of individual agents are logged and skipped; the call
// reports true iff at least one of the named agents is usable afterwards.
// Already-initialized agents are reused, making the call idempotent for the
// same set.
func (e *Engine) InitializeAgents(ctx context.Context, names []string) bool {
	usable := 0
	for _, name := range names {
		e.mu.RLock()
		_, exists := e.agents[name]
		e.mu.RUnlock()
		if exists {
			usable++
			continue
		}

		desc, err := e.reg.Get(name)
		if err != nil {
			e.logger.Warn(ctx, "agent not registered", "agent", name, "error", err.Error())
			continue
		}
		ag, err := desc.Factory(ctx)
		if err != nil {
			e.logger.Warn(ctx, "agent construction failed", "agent", name, "error", err.Error())
			continue
		}
		if err := ag.Init(ctx); err != nil {
			e.logger.Warn(ctx, "agent initialization failed", "agent", name, "error", err.Error())
			continue
		}

		e.mu.Lock()
		if _, raced := e.agents[name]; raced {
			e.mu.Unlock()
			// A concurrent initializer won; discard ours.
			_ = ag.Close()
			usable++
			continue
		}
		e.agents[name] = ag
		e.mu.Unlock()

		e.logger.Info(ctx, "agent initialized", "agent", name, "state", string(ag.State()))
		e.metrics.IncCounter("agents_initialized", 1, "agent", name)
		usable++
	}
	return usable > 0
}

// InitializeAll initializes every registered agent.
func (e *Engine) InitializeAll(ctx context.Context) bool {
	return e.InitializeAgents(ctx, e.reg.List())
}

// ExecuteWorkflow runs the plan's steps in order, resolving placeholder
// parameters against earlier outputs. Failures terminate the workflow while
// preserving already-recorded results. Cancellation takes effect at step
// boundaries; an in-flight invocation's outcome is recorded first.
func (e *Engine) ExecuteWorkflow(ctx context.Context, plan *planner.Plan) *Result {
	wfID := plan.WorkflowID
	if wfID == "" {
		wfID = planner.NewWorkflowID("wf")
	}

	// Cross-workflow concurrency cap. Saturated callers queue here.
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return &Result{
			WorkflowID: wfID,
			Status:     StatusFailed,
			Results:    map[string]StepResult{},
			Err:        fault.Wrap(fault.KindOf(ctx.Err()), "workflow aborted while queued", ctx.Err()),
		}
	}
	defer func() { <-e.sem }()

	ctx, span := e.tracer.Start(ctx, "engine.execute_workflow")
	defer span.End()
	started := time.Now()

	e.mu.Lock()
	e.executions[wfID] = &execution{
		workflowID: wfID,
		startedAt:  started,
		status:     StatusRunning,
		totalSteps: len(plan.Steps),
	}
	e.mu.Unlock()

	results := make(map[string]StepResult, len(plan.Steps))

	for i, step := range plan.Steps {
		key := stepKey(i)

		// Step-boundary cancellation check.
		if err := ctx.Err(); err != nil {
			fe := fault.Wrap(fault.KindOf(err), "workflow cancelled before "+key, err)
			results[key] = StepResult{Agent: step.Agent, Tool: step.Tool, Err: fe}
			return e.fail(ctx, wfID, results, fe, started)
		}

		ag, ok := e.agentFor(step.Agent)
		if !ok {
			fe := fault.Newf(fault.UnknownAgent, "agent %s is not initialized", step.Agent)
			results[key] = StepResult{Agent: step.Agent, Tool: step.Tool, Err: fe}
			return e.fail(ctx, wfID, results, fe, started)
		}
		if _, ok := ag.Tools()[step.Tool]; !ok {
			fe := fault.Newf(fault.UnknownTool, "agent %s has no tool %q", step.Agent, step.Tool)
			results[key] = StepResult{Agent: step.Agent, Tool: step.Tool, Err: fe}
			return e.fail(ctx, wfID, results, fe, started)
		}

		params := resolveParams(step.Parameters, results)

		timeout := step.Timeout
		if timeout <= 0 {
			timeout = e.cfg.DefaultStepTimeout
		}
		out, err := e.invoke(ctx, ag, step.Tool, params, timeout)
		if err != nil {
			fe := fault.From(err)
			e.logger.Warn(ctx, "step failed", "workflow_id", wfID, "step", key,
				"agent", step.Agent, "tool", step.Tool, "kind", string(fe.Kind))
			results[key] = StepResult{Agent: step.Agent, Tool: step.Tool, Err: fe}
			return e.fail(ctx, wfID, results, fe, started)
		}

		normalized, fe := normalizeOutput(out)
		if fe != nil {
			results[key] = StepResult{Agent: step.Agent, Tool: step.Tool, Err: fe}
			return e.fail(ctx, wfID, results, fe, started)
		}

		results[key] = StepResult{Agent: step.Agent, Tool: step.Tool, Result: normalized}
		e.completeStep(wfID)
		e.logger.Debug(ctx, "step completed", "workflow_id", wfID, "step", key,
			"agent", step.Agent, "tool", step.Tool)
	}

	e.setStatus(wfID, StatusCompleted)
	e.metrics.RecordTimer("workflow_duration", time.Since(started), "status", string(StatusCompleted))
	e.logger.Info(ctx, "workflow completed", "workflow_id", wfID, "steps", len(plan.Steps))
	return &Result{WorkflowID: wfID, Status: StatusCompleted, Results: results}
}

// invoke runs one tool call under a per-step deadline. Handlers are expected
// to honor the context, but the engine stops waiting on deadline elapse
// regardless. Caller cancellation does not cut the invocation short: the
// in-flight call finishes and its outcome is recorded; cancellation lands at
// the next step boundary.
func (e *Engine) invoke(ctx context.Context, ag agent.Agent, tool string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out map[string]any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := ag.Invoke(stepCtx, tool, params)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-stepCtx.Done():
		if errors.Is(stepCtx.Err(), context.Canceled) {
			o := <-done
			return o.out, o.err
		}
		return nil, stepCtx.Err()
	}
}

// GetWorkflowStatus snapshots one execution row, or {status: not_found}.
func (e *Engine) GetWorkflowStatus(workflowID string) StatusSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ex, ok := e.executions[workflowID]
	if !ok {
		return StatusSnapshot{WorkflowID: workflowID, Status: StatusNotFound}
	}
	return StatusSnapshot{
		WorkflowID:     ex.workflowID,
		Status:         ex.status,
		StepsCompleted: ex.stepsCompleted,
		TotalSteps:     ex.totalSteps,
		StartedAt:      ex.startedAt,
	}
}

// ListAvailableAgents reports each initialized agent's name, state and tool
// table, sorted by name.
func (e *Engine) ListAvailableAgents() []AgentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	statuses := make([]AgentStatus, 0, len(e.agents))
	for name, ag := range e.agents {
		statuses = append(statuses, AgentStatus{
			Name:  name,
			State: ag.State(),
			Tools: toolInfos(ag),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// AgentInfos shapes the initialized agents for planners.
func (e *Engine) AgentInfos() []planner.AgentInfo {
	statuses := e.ListAvailableAgents()
	infos := make([]planner.AgentInfo, len(statuses))
	for i, s := range statuses {
		infos[i] = planner.AgentInfo{Name: s.Name, Tools: s.Tools}
	}
	return infos
}

// Shutdown closes every initialized agent and clears the execution table.
// Idempotent; a subsequent InitializeAgents starts fresh.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	agents := e.agents
	e.agents = make(map[string]agent.Agent)
	e.executions = make(map[string]*execution)
	e.mu.Unlock()

	for name, ag := range agents {
		if err := ag.Close(); err != nil {
			e.logger.Warn(ctx, "agent close failed", "agent", name, "error", err.Error())
		}
	}
	if len(agents) > 0 {
		e.logger.Info(ctx, "engine shut down", "agents_closed", len(agents))
	}
	return nil
}

func (e *Engine) agentFor(name string) (agent.Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ag, ok := e.agents[name]
	return ag, ok
}

func (e *Engine) completeStep(workflowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ex, ok := e.executions[workflowID]; ok {
		ex.stepsCompleted++
	}
}

func (e *Engine) setStatus(workflowID string, status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ex, ok := e.executions[workflowID]; ok {
		ex.status = status
	}
}

func (e *Engine) fail(ctx context.Context, workflowID string, results map[string]StepResult, fe *fault.Error, started time.Time) *Result {
	e.setStatus(workflowID, StatusFailed)
	e.metrics.RecordTimer("workflow_duration", time.Since(started), "status", string(StatusFailed))
	e.logger.Error(ctx, "workflow failed", "workflow_id", workflowID, "kind", string(fe.Kind), "error", fe.Error())
	return &Result{WorkflowID: workflowID, Status: StatusFailed, Results: results, Err: fe}
}

func toolInfos(ag agent.Agent) []planner.ToolInfo {
	tools := ag.Tools()
	infos := make([]planner.ToolInfo, 0, len(tools))
	for _, d := range tools {
		infos = append(infos, planner.ToolInfo{Name: d.Name, Description: d.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
