// Package hybrid composes two planners: a configured primary and the other
// as backup. Invalid output or an error from the primary routes the request
// to the secondary with the reason recorded on the returned plan.
package hybrid

import (
	"context"
	"fmt"

	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/planner"
)

// Primary selects which planner the hybrid tries first.
type Primary string

const (
	// PrimaryLearning tries the model planner first.
	PrimaryLearning Primary = "learning"
	// PrimaryRule tries the rule planner first.
	PrimaryRule Primary = "rule"
)

// Planner tries the primary and falls back to the secondary.
type Planner struct {
	first  planner.Planner
	second planner.Planner
	label  Primary
}

// New constructs a hybrid planner from the rule and learning planners.
func New(primary Primary, rulePlanner, learningPlanner planner.Planner) (*Planner, error) {
	if rulePlanner == nil || learningPlanner == nil {
		return nil, fault.New(fault.ConfigError, "hybrid planner requires both rule and learning planners")
	}
	switch primary {
	case PrimaryLearning:
		return &Planner{first: learningPlanner, second: rulePlanner, label: primary}, nil
	case PrimaryRule:
		return &Planner{first: rulePlanner, second: learningPlanner, label: primary}, nil
	default:
		return nil, fault.Newf(fault.ConfigError, "unknown hybrid primary %q", primary)
	}
}

// Plan invokes the primary planner and validates its output; on error or an
// invalid plan it invokes the other and records why.
func (p *Planner) Plan(ctx context.Context, req planner.Request) (*planner.Plan, error) {
	plan, err := p.first.Plan(ctx, req)
	if err == nil {
		if verr := planner.Validate(plan, req); verr == nil {
			plan.Method = planner.MethodHybrid
			plan.Reason = fmt.Sprintf("hybrid (%s primary): %s", p.label, plan.Reason)
			return plan, nil
		} else {
			err = verr
		}
	}

	plan, serr := p.second.Plan(ctx, req)
	if serr != nil {
		return nil, serr
	}
	plan.Method = planner.MethodHybrid
	plan.Reason = fmt.Sprintf("hybrid (%s primary failed: %v): %s", p.label, err, plan.Reason)
	return plan, nil
}
