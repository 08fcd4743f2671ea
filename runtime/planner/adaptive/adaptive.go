// Package adaptive selects a planning method per request. The method comes
// from an explicit override, an implicit override detected in the request
// text, or the configured default; auto mode tries the model planner first
// and falls back to rules on invalid output.
package adaptive

import (
	"context"
	"fmt"
	"strings"

	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/planner"
)

// Methods accepted as overrides.
const (
	MethodSystematic = "systematic"
	MethodLearning   = "learning"
	MethodHybrid     = "hybrid"
	MethodAuto       = "auto"
)

// textOverrides maps request-text phrases to planning methods. Checked in
// order so more specific phrases win.
var textOverrides = []struct {
	phrase string
	method string
}{
	{"use ai", MethodLearning},
	{"use llm", MethodLearning},
	{"use the model", MethodLearning},
	{"learning-based", MethodLearning},
	{"rule-based", MethodSystematic},
	{"systematic", MethodSystematic},
	{"deterministic", MethodSystematic},
	{"hybrid", MethodHybrid},
}

// Planner dispatches to rule, learning or hybrid planners per request.
type Planner struct {
	rule     planner.Planner
	learning planner.Planner
	hybrid   planner.Planner
	fallback string
}

// New constructs an adaptive planner. defaultMethod applies when neither an
// explicit nor an implicit override is present; empty means auto.
func New(rulePlanner, learningPlanner, hybridPlanner planner.Planner, defaultMethod string) (*Planner, error) {
	if rulePlanner == nil || learningPlanner == nil || hybridPlanner == nil {
		return nil, fault.New(fault.ConfigError, "adaptive planner requires rule, learning and hybrid planners")
	}
	if defaultMethod == "" {
		defaultMethod = MethodAuto
	}
	switch defaultMethod {
	case MethodSystematic, MethodLearning, MethodHybrid, MethodAuto:
	default:
		return nil, fault.Newf(fault.ConfigError, "unknown default planning method %q", defaultMethod)
	}
	return &Planner{rule: rulePlanner, learning: learningPlanner, hybrid: hybridPlanner, fallback: defaultMethod}, nil
}

// Plan detects an implicit override in the request text and dispatches.
func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Plan, error) {
	return p.PlanWithMethod(ctx, req, detectOverride(req.Text, p.fallback))
}

// PlanWithMethod dispatches with an explicit method override.
func (p *Planner) PlanWithMethod(ctx context.Context, req planner.Request, method string) (*planner.Plan, error) {
	switch method {
	case MethodSystematic:
		return p.rule.Plan(ctx, req)
	case MethodLearning:
		return p.learning.Plan(ctx, req)
	case MethodHybrid:
		return p.hybrid.Plan(ctx, req)
	case MethodAuto, "":
		return p.auto(ctx, req)
	default:
		return nil, fault.Newf(fault.ConfigError, "unknown planning method %q", method)
	}
}

// auto tries the model planner first and falls back to rules when its output
// does not validate.
func (p *Planner) auto(ctx context.Context, req planner.Request) (*planner.Plan, error) {
	plan, err := p.learning.Plan(ctx, req)
	if err == nil {
		if verr := planner.Validate(plan, req); verr == nil {
			plan.Reason = "auto mode selected the model planner; " + plan.Reason
			return plan, nil
		} else {
			err = verr
		}
	}
	plan, rerr := p.rule.Plan(ctx, req)
	if rerr != nil {
		return nil, rerr
	}
	plan.Reason = fmt.Sprintf("auto mode fell back to rules (%v); %s", err, plan.Reason)
	return plan, nil
}

// detectOverride scans request text for method phrases, falling back to the
// configured default.
func detectOverride(text, fallback string) string {
	normalized := strings.ToLower(text)
	for _, o := range textOverrides {
		if strings.Contains(normalized, o.phrase) {
			return o.method
		}
	}
	return fallback
}
