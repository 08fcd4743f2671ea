package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/enerflow/runtime/intent"
	"github.com/enerflow/enerflow/runtime/planner"
	"github.com/enerflow/enerflow/runtime/planner/rule"
)

type fakeClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testRequest() planner.Request {
	return planner.Request{
		Text:  "what time is it now?",
		Match: intent.Match{Intent: intent.Time, Confidence: 0.4},
		Agents: []planner.AgentInfo{
			{Name: "system", Tools: []planner.ToolInfo{
				{Name: "get_current_time", Description: "Returns the current time."},
				{Name: "scope_check", Description: "Checks request scope."},
			}},
		},
	}
}

func newPlanner(t *testing.T, client planner.ModelClient) *Planner {
	t.Helper()
	p, err := New(client, rule.New(rule.Options{}), nil)
	require.NoError(t, err)
	return p
}

func TestPlanAcceptsValidModelOutput(t *testing.T) {
	client := &fakeClient{response: `{
		"workflow_id": "model-wf-1",
		"steps": [{"step_index": 0, "agent": "system", "tool": "get_current_time", "parameters": {}}]
	}`}
	p := newPlanner(t, client)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.MethodLearning, plan.Method)
	require.Equal(t, "model-wf-1", plan.WorkflowID)
	require.Len(t, plan.Steps, 1)

	// The prompt advertises the agent tool tables.
	require.Len(t, client.prompts, 1)
	require.Contains(t, client.prompts[0], "get_current_time")
	require.Contains(t, client.prompts[0], "what time is it now?")
}

func TestPlanStripsCodeFences(t *testing.T) {
	client := &fakeClient{response: "```json\n" + `{
		"workflow_id": "model-wf-2",
		"steps": [{"step_index": 0, "agent": "system", "tool": "get_current_time"}]
	}` + "\n```"}
	p := newPlanner(t, client)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.MethodLearning, plan.Method)
}

func TestPlanRevivesPlaceholders(t *testing.T) {
	client := &fakeClient{response: `{
		"workflow_id": "model-wf-3",
		"steps": [
			{"step_index": 0, "agent": "system", "tool": "get_current_time"},
			{"step_index": 1, "agent": "system", "tool": "scope_check",
			 "parameters": {"query": "step_1.current_time"}}
		]
	}`}
	p := newPlanner(t, client)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.Ref(1, "current_time"), plan.Steps[1].Parameters["query"])
}

func TestPlanFallsBackOnNonJSON(t *testing.T) {
	client := &fakeClient{response: "I'd suggest checking the clock."}
	p := newPlanner(t, client)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.MethodRule, plan.Method)
	require.Contains(t, plan.Reason, "model response invalid")
	require.NotEmpty(t, plan.Steps)
}

func TestPlanFallsBackOnModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	p := newPlanner(t, client)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.MethodRule, plan.Method)
	require.Contains(t, plan.Reason, "model call failed")
}

func TestPlanFallsBackOnUnknownAgent(t *testing.T) {
	client := &fakeClient{response: `{
		"workflow_id": "model-wf-4",
		"steps": [{"step_index": 0, "agent": "ghost", "tool": "boo"}]
	}`}
	p := newPlanner(t, client)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.MethodRule, plan.Method)
	require.Contains(t, plan.Reason, "failed validation")
}

func TestPlanFallsBackWithoutClient(t *testing.T) {
	p := newPlanner(t, nil)

	plan, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, planner.MethodRule, plan.Method)
	require.Contains(t, plan.Reason, "missing credentials")
}

func TestNewRequiresFallback(t *testing.T) {
	_, err := New(&fakeClient{}, nil, nil)
	require.Error(t, err)
}
