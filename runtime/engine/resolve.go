package engine

import (
	"fmt"

	"github.com/enerflow/enerflow/runtime/planner"
)

// stepKey renders the 1-based results key for the step at 0-based index i.
func stepKey(i int) string {
	return fmt.Sprintf("step_%d", i+1)
}

// resolveParams replaces placeholder references in a step's parameter map
// with fields of earlier step outputs. Resolution is fail-soft: a reference
// to a missing step or field resolves to its literal wire string so the
// consuming tool sees what was asked for.
func resolveParams(params map[string]any, results map[string]StepResult) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = resolveValue(v, results)
	}
	return out
}

func resolveValue(v any, results map[string]StepResult) any {
	switch val := v.(type) {
	case planner.Placeholder:
		return resolveRef(val, results)
	case map[string]any:
		return resolveParams(val, results)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, results)
		}
		return out
	default:
		return v
	}
}

func resolveRef(ref planner.Placeholder, results map[string]StepResult) any {
	sr, ok := results[fmt.Sprintf("step_%d", ref.Step)]
	if !ok || sr.Result == nil {
		return ref.String()
	}
	field, ok := sr.Result[ref.Field]
	if !ok {
		return ref.String()
	}
	return field
}
