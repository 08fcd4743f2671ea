package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/enerflow/runtime/agent"
	"github.com/enerflow/enerflow/runtime/fault"
)

func initialized(t *testing.T) *Agent {
	t.Helper()
	a := NewWithClock(func() time.Time {
		return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	})
	require.NoError(t, a.Init(context.Background()))
	require.Equal(t, agent.StateReady, a.State())
	return a
}

func TestGetCurrentTime(t *testing.T) {
	a := initialized(t)
	out, err := a.Invoke(context.Background(), "get_current_time", nil)
	require.NoError(t, err)
	require.Equal(t, "2025-06-15T10:30:00Z", out["current_time"])
	require.Equal(t, "2025-06-15", out["date"])
	require.Equal(t, "UTC", out["timezone"])
}

func TestScopeCheck(t *testing.T) {
	a := initialized(t)
	out, err := a.Invoke(context.Background(), "scope_check", map[string]any{
		"query":            "who won the game",
		"supported_topics": []any{"energy analysis"},
	})
	require.NoError(t, err)
	require.Equal(t, false, out["in_scope"])
	require.Equal(t, "who won the game", out["query"])
	require.Equal(t, []any{"energy analysis"}, out["supported_topics"])
}

func TestScopeCheckRequiresQuery(t *testing.T) {
	a := initialized(t)
	_, err := a.Invoke(context.Background(), "scope_check", map[string]any{})
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
}

func TestToolNames(t *testing.T) {
	a := initialized(t)
	require.Equal(t, []string{"get_current_time", "scope_check"}, a.ToolNames())
}
