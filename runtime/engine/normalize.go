package engine

import (
	"encoding/json"

	"github.com/enerflow/enerflow/runtime/fault"
)

// normalizeOutput unwraps the three tool output wire shapes into a flat
// field map:
//
//	Direct:   { field: value, ... }
//	Envelope: { "content": [ { "text": "<json>" } ], "isError": bool }
//	Error:    { "error": "<message>", "kind": "<kind>" }
//
// Envelope text payloads are JSON-decoded. An envelope with isError set, or
// a direct map in Error shape, becomes a fault. Undecodable envelope text is
// kept fail-soft under a "text" field.
func normalizeOutput(out map[string]any) (map[string]any, *fault.Error) {
	if out == nil {
		return map[string]any{}, nil
	}

	fields, isError, enveloped := unwrapEnvelope(out)
	if !enveloped {
		fields = out
		isError = errorShaped(out)
	}
	if isError {
		msg, _ := fields["error"].(string)
		if msg == "" {
			msg = "tool reported an error without a message"
		}
		kind := fault.ToolFailure
		if k, ok := fields["kind"].(string); ok && k != "" {
			kind = fault.Kind(k)
		}
		return nil, fault.New(kind, msg)
	}
	return fields, nil
}

// errorShaped reports whether a direct map is in the Error wire shape: an
// "error" message plus at most an optional "kind".
func errorShaped(out map[string]any) bool {
	if _, ok := out["error"].(string); !ok {
		return false
	}
	for k := range out {
		if k != "error" && k != "kind" {
			return false
		}
	}
	return true
}

// unwrapEnvelope extracts the decoded text payload of an envelope-shaped
// output. Returns enveloped=false when the map is not in envelope shape.
func unwrapEnvelope(out map[string]any) (fields map[string]any, isError, enveloped bool) {
	content, ok := out["content"].([]any)
	if !ok || len(content) == 0 {
		return nil, false, false
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		return nil, false, false
	}
	text, ok := first["text"].(string)
	if !ok {
		return nil, false, false
	}
	isError, _ = out["isError"].(bool)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return map[string]any{"text": text}, isError, true
	}
	return decoded, isError, true
}
