package agent

import "encoding/json"

// Envelope wraps tool output fields in the content-envelope wire shape
// {content: [{text: "<json>"}], isError: false}. Agents whose tools speak the
// envelope protocol wrap their results with it; the engine normalizes both
// enveloped and direct maps before recording step results.
func Envelope(fields map[string]any) map[string]any {
	return envelope(fields, false)
}

// ErrorEnvelope wraps an error message in the content-envelope wire shape
// with isError set.
func ErrorEnvelope(message string) map[string]any {
	return envelope(map[string]any{"error": message}, true)
}

func envelope(fields map[string]any, isError bool) map[string]any {
	data, err := json.Marshal(fields)
	if err != nil {
		// Marshal of map[string]any built from JSON-native values cannot
		// fail; fall back to an empty object if a handler smuggled in
		// something exotic.
		data = []byte("{}")
	}
	return map[string]any{
		"content": []any{
			map[string]any{"text": string(data)},
		},
		"isError": isError,
	}
}
