package intent

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestMatchScenarios(t *testing.T) {
	m := NewMatcher(nil)
	cases := []struct {
		name string
		text string
		want Intent
	}{
		{"latest reading", "what is the date of the most recent energy usage reading?", EnergyMonitoring},
		{"portfolio performance", "show me walmart portfolio performance metrics", Portfolio},
		{"finance roi", "calculate ROI for LED retrofit project for building 123 with $50000 budget", Finance},
		{"out of scope", "who won the super bowl last year?", OutOfScope},
		{"energy optimization", "how can we optimize energy usage in building 5", Energy},
		{"time", "what time is it now?", Time},
		{"document", "summarize the attached pdf document", Document},
		{"health", "any anomaly alerts on building status?", Monitoring},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Match(tc.text)
			require.Equal(t, tc.want, got.Intent, "reason: %s, all: %v", got.Reason, got.AllMatches)
			require.Greater(t, got.Confidence, 0.0)
			require.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestMatchNoKeywords(t *testing.T) {
	m := NewMatcher(nil)
	got := m.Match("zzz qqq xxx")
	require.Equal(t, Unknown, got.Intent)
	require.Zero(t, got.Confidence)
	require.Equal(t, "no keywords matched", got.Reason)
}

func TestMatchOutOfScopeReasonNamesVocabulary(t *testing.T) {
	m := NewMatcher(nil)
	got := m.Match("what's the weather for the super bowl?")
	require.Equal(t, OutOfScope, got.Intent)
	require.Contains(t, got.Reason, "weather")
	require.Contains(t, got.Reason, "super bowl")
}

func TestMatchTieBreakIsLexicographic(t *testing.T) {
	m := NewMatcher(map[Intent][]string{
		"bravo": {"shared"},
		"alpha": {"shared"},
	})
	got := m.Match("shared word")
	require.Equal(t, Intent("alpha"), got.Intent)
}

func TestMatchArgmaxInAllMatches(t *testing.T) {
	m := NewMatcher(nil)
	got := m.Match("show me walmart portfolio performance metrics")
	for tag, score := range got.AllMatches {
		require.LessOrEqual(t, score, got.Confidence, "tag %s outscored the argmax", tag)
	}
	require.Equal(t, got.Confidence, got.AllMatches[got.Intent])
}

func TestMatchDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	m := NewMatcher(nil)

	properties.Property("repeated calls yield identical matches", prop.ForAll(
		func(text string) bool {
			first := m.Match(text)
			second := m.Match(text)
			return first.Intent == second.Intent &&
				first.Confidence == second.Confidence &&
				first.Reason == second.Reason &&
				reflect.DeepEqual(first.AllMatches, second.AllMatches)
		},
		gen.AnyString(),
	))
	properties.TestingRun(t)
}
