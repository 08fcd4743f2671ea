package planner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/intent"
)

func availableAgents() []AgentInfo {
	return []AgentInfo{
		{Name: "system", Tools: []ToolInfo{{Name: "get_current_time"}, {Name: "scope_check"}}},
		{Name: "finance", Tools: []ToolInfo{{Name: "calculate_project_roi"}}},
	}
}

func TestPlaceholderWireForm(t *testing.T) {
	ph := Ref(2, "building_id")
	require.Equal(t, "step_2.building_id", ph.String())

	parsed, ok := ParsePlaceholder("step_2.building_id")
	require.True(t, ok)
	require.Equal(t, ph, parsed)

	for _, bad := range []string{"step_0.field", "step_x.field", "step_1", "prefix step_1.field", "step_1.a.b"} {
		_, ok := ParsePlaceholder(bad)
		require.False(t, ok, "parsed %q", bad)
	}
}

func TestPlaceholderJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]any{"ref": Ref(1, "usage")})
	require.NoError(t, err)
	require.JSONEq(t, `{"ref":"step_1.usage"}`, string(data))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	revived := RevivePlaceholders(decoded)
	require.Equal(t, Ref(1, "usage"), revived["ref"])
}

func TestRevivePlaceholdersNested(t *testing.T) {
	params := map[string]any{
		"literal": "just text",
		"nested":  map[string]any{"ref": "step_3.benchmark"},
		"list":    []any{"step_1.usage", "plain"},
	}
	revived := RevivePlaceholders(params)
	require.Equal(t, "just text", revived["literal"])
	require.Equal(t, Ref(3, "benchmark"), revived["nested"].(map[string]any)["ref"])
	require.Equal(t, Ref(1, "usage"), revived["list"].([]any)[0])
	require.Equal(t, "plain", revived["list"].([]any)[1])
}

func TestValidate(t *testing.T) {
	req := Request{Text: "x", Agents: availableAgents()}

	valid := &Plan{
		WorkflowID: "wf-1",
		Status:     StatusReady,
		Steps:      []Step{{Agent: "system", Tool: "get_current_time"}},
	}
	require.NoError(t, Validate(valid, req))

	require.True(t, fault.IsKind(Validate(nil, req), fault.PlanInvalid))

	empty := &Plan{WorkflowID: "wf-2", Status: StatusReady}
	require.True(t, fault.IsKind(Validate(empty, req), fault.PlanInvalid))

	unknownAgent := &Plan{WorkflowID: "wf-3", Steps: []Step{{Agent: "ghost", Tool: "x"}}}
	require.True(t, fault.IsKind(Validate(unknownAgent, req), fault.PlanInvalid))

	unknownTool := &Plan{WorkflowID: "wf-4", Steps: []Step{{Agent: "system", Tool: "ghost"}}}
	require.True(t, fault.IsKind(Validate(unknownTool, req), fault.PlanInvalid))

	noAgents := &Plan{WorkflowID: NoAgentsWorkflowID, Status: StatusNoAgents}
	require.NoError(t, Validate(noAgents, Request{}))
}

func TestKeyStability(t *testing.T) {
	req := Request{Text: "show usage", Agents: availableAgents()}
	require.Equal(t, Key(req), Key(req))

	reordered := Request{Text: "show usage", Agents: []AgentInfo{
		req.Agents[1], req.Agents[0],
	}}
	require.Equal(t, Key(req), Key(reordered), "agent order must not affect the key")

	other := Request{Text: "show usage!", Agents: req.Agents}
	require.NotEqual(t, Key(req), Key(other))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	miss, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	require.Nil(t, miss)

	plan := &Plan{
		WorkflowID: "wf-5",
		Status:     StatusReady,
		Method:     MethodRule,
		Steps: []Step{{
			Agent:      "finance",
			Tool:       "calculate_project_roi",
			Parameters: map[string]any{"roi_analysis": Ref(1, "roi_percent")},
		}},
	}
	require.NoError(t, c.Set(ctx, "k", plan, time.Minute))
	require.Equal(t, 1, c.Len())

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, plan.WorkflowID, got.WorkflowID)
	// Placeholders survive the serialization round trip as tagged values.
	require.Equal(t, Ref(1, "roi_percent"), got.Steps[0].Parameters["roi_analysis"])

	c.Clear()
	require.Zero(t, c.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "k", &Plan{WorkflowID: "wf-6"}, -time.Second))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

type countingPlanner struct {
	calls int
	plan  *Plan
}

func (p *countingPlanner) Plan(context.Context, Request) (*Plan, error) {
	p.calls++
	copied := *p.plan
	copied.WorkflowID = NewWorkflowID("wf")
	return &copied, nil
}

func TestCachingPlanner(t *testing.T) {
	ctx := context.Background()
	next := &countingPlanner{plan: &Plan{
		Status: StatusReady,
		Method: MethodRule,
		Reason: "routed",
		Steps:  []Step{{Agent: "system", Tool: "get_current_time"}},
	}}
	caching := NewCaching(next, NewMemoryCache(), time.Minute)
	req := Request{Text: "what time is it", Match: intent.Match{Intent: intent.Time}, Agents: availableAgents()}

	first, err := caching.Plan(ctx, req)
	require.NoError(t, err)
	second, err := caching.Plan(ctx, req)
	require.NoError(t, err)

	require.Equal(t, 1, next.calls, "second call must be served from cache")
	require.Equal(t, first.Steps, second.Steps)
	require.NotEqual(t, first.WorkflowID, second.WorkflowID, "each planning event keeps a unique workflow id")
	require.Contains(t, second.Reason, "plan cache")

	// Different text misses.
	_, err = caching.Plan(ctx, Request{Text: "different", Agents: req.Agents})
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}
