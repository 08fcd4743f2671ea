package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/enerflow/runtime/fault"
)

func newTestBase(t *testing.T) *Base {
	t.Helper()
	b := NewBase("test-agent")
	require.NoError(t, b.RegisterTool(ToolDescriptor{
		Name:        "echo",
		Description: "Echoes its message parameter.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []any{"message"},
		},
		Handler: func(_ context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"message": params["message"]}, nil
		},
	}))
	b.SetState(StateReady)
	return b
}

func TestBaseInvoke(t *testing.T) {
	b := newTestBase(t)
	out, err := b.Invoke(context.Background(), "echo", map[string]any{"message": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", out["message"])
}

func TestBaseInvokeUnknownTool(t *testing.T) {
	b := newTestBase(t)
	_, err := b.Invoke(context.Background(), "nope", nil)
	require.True(t, fault.IsKind(err, fault.UnknownTool))
}

func TestBaseInvokeSchemaViolation(t *testing.T) {
	b := newTestBase(t)

	_, err := b.Invoke(context.Background(), "echo", map[string]any{"message": 42})
	require.True(t, fault.IsKind(err, fault.InvalidArgument))

	_, err = b.Invoke(context.Background(), "echo", map[string]any{})
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
}

func TestBaseInvokeHandlerError(t *testing.T) {
	b := NewBase("failing")
	require.NoError(t, b.RegisterTool(ToolDescriptor{
		Name:        "fail",
		Description: "Always fails.",
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	}))
	b.SetState(StateReady)

	_, err := b.Invoke(context.Background(), "fail", nil)
	require.True(t, fault.IsKind(err, fault.ToolFailure))
}

func TestBaseStateMachine(t *testing.T) {
	b := NewBase("lifecycle")
	require.Equal(t, StateUninitialized, b.State())

	// Invocations before Init fail.
	require.NoError(t, b.RegisterTool(ToolDescriptor{
		Name:        "noop",
		Description: "Does nothing.",
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	}))
	_, err := b.Invoke(context.Background(), "noop", nil)
	require.Error(t, err)

	b.SetState(StateReady)
	_, err = b.Invoke(context.Background(), "noop", nil)
	require.NoError(t, err)

	// Close is terminal and idempotent.
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	require.Equal(t, StateClosed, b.State())
	b.SetState(StateReady)
	require.Equal(t, StateClosed, b.State())

	_, err = b.Invoke(context.Background(), "noop", nil)
	require.Error(t, err)
}

func TestBaseRegisterToolValidation(t *testing.T) {
	b := NewBase("strict")
	err := b.RegisterTool(ToolDescriptor{Description: "missing name"})
	require.True(t, fault.IsKind(err, fault.ConfigError))

	err = b.RegisterTool(ToolDescriptor{Name: "nohandler"})
	require.True(t, fault.IsKind(err, fault.ConfigError))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	fields := map[string]any{
		"summary": "short text",
		"count":   float64(3),
		"nested":  map[string]any{"ok": true},
	}
	env := Envelope(fields)

	content, ok := env["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	require.Equal(t, false, env["isError"])

	text := content[0].(map[string]any)["text"].(string)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	require.Equal(t, fields, decoded)
}

func TestErrorEnvelope(t *testing.T) {
	env := ErrorEnvelope("it broke")
	require.Equal(t, true, env["isError"])
	text := env["content"].([]any)[0].(map[string]any)["text"].(string)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	require.Equal(t, "it broke", decoded["error"])
}
