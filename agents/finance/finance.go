// Package finance implements the finance agent: project ROI analysis and
// EaaS contract optimization.
package finance

import (
	"context"
	"math"

	"github.com/enerflow/enerflow/runtime/agent"
	"github.com/enerflow/enerflow/runtime/fault"
)

// Name is the agent's registry name.
const Name = "finance"

// Annual savings rate and recommended contract term per technology type.
var technologyProfiles = map[string]struct {
	savingsRate float64
	termMonths  int
}{
	"LED":      {savingsRate: 0.22, termMonths: 60},
	"HVAC":     {savingsRate: 0.18, termMonths: 84},
	"Solar":    {savingsRate: 0.15, termMonths: 120},
	"Storage":  {savingsRate: 0.12, termMonths: 96},
	"Controls": {savingsRate: 0.20, termMonths: 48},
}

// Agent serves financial modeling tools.
type Agent struct {
	*agent.Base
}

// New constructs the finance agent.
func New() *Agent {
	return &Agent{Base: agent.NewBase(Name)}
}

// Factory is the registry factory for the finance agent.
func Factory(context.Context) (agent.Agent, error) {
	return New(), nil
}

// Init registers the agent's tools.
func (a *Agent) Init(context.Context) error {
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "calculate_project_roi",
		Description: "Computes ROI, payback and NPV for an efficiency project.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project_details": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"project_name":     map[string]any{"type": "string"},
						"technology_type":  map[string]any{"type": "string"},
						"total_investment": map[string]any{"type": "number"},
					},
					"required": []any{"total_investment"},
				},
			},
			"required": []any{"project_details"},
		},
		Handler: a.calculateProjectROI,
	}); err != nil {
		return err
	}
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "optimize_eaas_contract",
		Description: "Recommends EaaS contract terms for a technology and ROI profile.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"technology_type": map[string]any{"type": "string"},
				"roi_analysis":    map[string]any{},
			},
		},
		Handler: a.optimizeEaaSContract,
	}); err != nil {
		return err
	}
	a.SetState(agent.StateReady)
	return nil
}

func (a *Agent) calculateProjectROI(_ context.Context, params map[string]any) (map[string]any, error) {
	details, _ := params["project_details"].(map[string]any)
	investment, ok := details["total_investment"].(float64)
	if !ok || investment <= 0 {
		return nil, fault.New(fault.InvalidArgument, "total_investment must be a positive number")
	}
	tech, _ := details["technology_type"].(string)
	profile, ok := technologyProfiles[tech]
	if !ok {
		tech = "LED"
		profile = technologyProfiles[tech]
	}
	name, _ := details["project_name"].(string)

	annualSavings := investment * profile.savingsRate
	// 10-year NPV at an 8% discount rate.
	npv := -investment
	for t := 1; t <= 10; t++ {
		npv += annualSavings / math.Pow(1.08, float64(t))
	}
	return map[string]any{
		"project_name":     name,
		"technology_type":  tech,
		"total_investment": investment,
		"annual_savings":   annualSavings,
		"roi_percent":      profile.savingsRate * 100,
		"payback_years":    investment / annualSavings,
		"npv":              math.Round(npv*100) / 100,
	}, nil
}

func (a *Agent) optimizeEaaSContract(_ context.Context, params map[string]any) (map[string]any, error) {
	tech, _ := params["technology_type"].(string)
	profile, ok := technologyProfiles[tech]
	if !ok {
		tech = "LED"
		profile = technologyProfiles[tech]
	}
	out := map[string]any{
		"technology_type":       tech,
		"recommended_term":      profile.termMonths,
		"savings_share_percent": 80,
		"performance_guarantee": true,
		"measurement_basis":     "IPMVP Option C",
		"notes":                 "shorter terms trade monthly cost for flexibility",
	}
	if roi, ok := params["roi_analysis"]; ok {
		out["roi_input"] = roi
	}
	return out, nil
}
