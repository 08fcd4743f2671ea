// Package monitoring implements the energy-monitoring agent: latest meter
// readings, usage pattern analysis and anomaly detection. Readings require a
// feed connection; without one the agent comes up Degraded and registers only
// its feed-free tools.
package monitoring

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/enerflow/enerflow/runtime/agent"
)

// Name is the agent's registry name.
const Name = "energy-monitoring"

// Agent serves meter and usage analysis tools. Outputs are synthetic but
// deterministic per building.
type Agent struct {
	*agent.Base
	feedDSN string
	clock   func() time.Time
}

// New constructs the agent. An empty feedDSN makes Init settle on Degraded
// with the reading tool unavailable.
func New(feedDSN string) *Agent {
	return NewWithClock(feedDSN, time.Now)
}

// NewWithClock constructs the agent with an injected clock for tests.
func NewWithClock(feedDSN string, clock func() time.Time) *Agent {
	return &Agent{Base: agent.NewBase(Name), feedDSN: feedDSN, clock: clock}
}

// Factory returns a registry factory bound to the given feed DSN.
func Factory(feedDSN string) func(context.Context) (agent.Agent, error) {
	return func(context.Context) (agent.Agent, error) {
		return New(feedDSN), nil
	}
}

// Init registers tools. Feed-dependent tools are skipped when the feed DSN
// is absent and the agent reports Degraded.
func (a *Agent) Init(context.Context) error {
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "analyze_usage_patterns",
		Description: "Analyzes a building's consumption patterns over a named period.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"building_id": map[string]any{"type": "string"},
				"time_period": map[string]any{"type": "string"},
			},
		},
		Handler: a.analyzeUsagePatterns,
	}); err != nil {
		return err
	}
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "detect_anomalies",
		Description: "Flags abnormal consumption events for a building.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"building_id": map[string]any{"type": "string"},
			},
		},
		Handler: a.detectAnomalies,
	}); err != nil {
		return err
	}

	if a.feedDSN == "" {
		a.SetState(agent.StateDegraded)
		return nil
	}

	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "get_latest_energy_reading",
		Description: "Returns the most recent meter reading from the energy feed.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"include_details": map[string]any{"type": "boolean"},
				"building_id":     map[string]any{"type": "string"},
			},
		},
		Handler: a.getLatestReading,
	}); err != nil {
		return err
	}
	a.SetState(agent.StateReady)
	return nil
}

func (a *Agent) getLatestReading(_ context.Context, params map[string]any) (map[string]any, error) {
	buildingID, _ := params["building_id"].(string)
	if buildingID == "" {
		buildingID = "building_default"
	}
	ts := a.clock().UTC().Add(-15 * time.Minute)
	out := map[string]any{
		"timestamp":   ts.Format(time.RFC3339),
		"reading_kwh": 1200 + float64(seed(buildingID)%400),
		"building_id": buildingID,
		"quality":     "good",
	}
	if details, _ := params["include_details"].(bool); details {
		out["meter_id"] = "MTR-0007"
		out["voltage"] = 416.2
		out["power_factor"] = 0.94
	}
	return out, nil
}

func (a *Agent) analyzeUsagePatterns(_ context.Context, params map[string]any) (map[string]any, error) {
	buildingID, _ := params["building_id"].(string)
	if buildingID == "" {
		buildingID = "building_default"
	}
	period, _ := params["time_period"].(string)
	if period == "" {
		period = "current_year"
	}
	base := 900 + float64(seed(buildingID)%600)
	return map[string]any{
		"building_id": buildingID,
		"time_period": period,
		"patterns": map[string]any{
			"baseline_kwh":  base,
			"peak_kwh":      base * 1.8,
			"weekend_ratio": 0.62,
			"trend":         "declining",
		},
		"observations": []any{
			"peak demand concentrated between 13:00 and 16:00",
			"weekend baseline above occupancy-adjusted expectation",
		},
	}, nil
}

func (a *Agent) detectAnomalies(_ context.Context, params map[string]any) (map[string]any, error) {
	buildingID, _ := params["building_id"].(string)
	if buildingID == "" {
		buildingID = "building_default"
	}
	count := int(seed(buildingID) % 3)
	anomalies := make([]any, 0, count)
	for i := 0; i < count; i++ {
		anomalies = append(anomalies, map[string]any{
			"type":      "consumption_spike",
			"severity":  "medium",
			"window":    "overnight",
			"delta_kwh": 40.0 + float64(i)*12.5,
		})
	}
	return map[string]any{
		"building_id":   buildingID,
		"anomalies":     anomalies,
		"anomaly_count": count,
	}, nil
}

// seed derives a stable per-identifier value for synthetic outputs.
func seed(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
