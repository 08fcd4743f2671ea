package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/enerflow/runtime/agent"
	"github.com/enerflow/enerflow/runtime/fault"
)

type stubAgent struct{ *agent.Base }

func (s *stubAgent) Init(context.Context) error {
	s.SetState(agent.StateReady)
	return nil
}

func stubFactory(context.Context) (agent.Agent, error) {
	return &stubAgent{Base: agent.NewBase("stub")}, nil
}

func otherFactory(context.Context) (agent.Agent, error) {
	return &stubAgent{Base: agent.NewBase("other")}, nil
}

func TestRegisterIdempotentForSameFactory(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", stubFactory))
	require.NoError(t, r.Register("stub", stubFactory))
	require.Equal(t, []string{"stub"}, r.List())
}

func TestRegisterDuplicateFactory(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", stubFactory))
	err := r.Register("stub", otherFactory)
	require.True(t, fault.IsKind(err, fault.DuplicateAgent))
}

func TestRegisterValidation(t *testing.T) {
	r := New()
	require.True(t, fault.IsKind(r.Register("", stubFactory), fault.ConfigError))
	require.True(t, fault.IsKind(r.Register("stub", nil), fault.ConfigError))
}

func TestGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", stubFactory, "energy"))

	d, err := r.Get("stub")
	require.NoError(t, err)
	require.Equal(t, "stub", d.Name)
	require.Equal(t, []string{"energy"}, d.DomainTags)

	_, err = r.Get("missing")
	require.True(t, fault.IsKind(err, fault.UnknownAgent))
}

func TestListSorted(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("zeta", stubFactory))
	require.NoError(t, r.Register("alpha", otherFactory))
	require.Equal(t, []string{"alpha", "zeta"}, r.List())
}

func TestByDomain(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("meters", stubFactory, "energy"))
	require.NoError(t, r.Register("books", otherFactory, "finance"))

	require.Equal(t, []string{"meters"}, r.ByDomain("energy"))
	require.Empty(t, r.ByDomain("documents"))
}
