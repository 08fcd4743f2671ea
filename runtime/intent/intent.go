// Package intent classifies request text into a closed set of intent tags
// using keyword scoring. The matcher is a pure function: no I/O, and
// identical input always produces an identical Match.
package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Intent tags the dominant topic of a request.
type Intent string

const (
	// Energy covers consumption and efficiency questions.
	Energy Intent = "energy"
	// EnergyMonitoring covers live readings and meter data.
	EnergyMonitoring Intent = "energy_monitoring"
	// Portfolio covers building portfolio performance.
	Portfolio Intent = "portfolio"
	// Finance covers ROI, budgets and contracts.
	Finance Intent = "finance"
	// Monitoring covers system health and alerting.
	Monitoring Intent = "monitoring"
	// Time covers clock and scheduling questions.
	Time Intent = "time"
	// Document covers document extraction and summarization.
	Document Intent = "document"
	// OutOfScope flags topics the runtime does not serve.
	OutOfScope Intent = "out_of_scope"
	// Unknown is returned when no keyword matches.
	Unknown Intent = "unknown"
)

// Match is the matcher's verdict for one request.
type Match struct {
	// Intent is the winning tag.
	Intent Intent
	// Confidence is the winning score in [0, 1].
	Confidence float64
	// Reason explains the verdict.
	Reason string
	// AllMatches maps every tag that scored above zero to its score.
	AllMatches map[Intent]float64
}

// Matcher scores request text against per-intent keyword sets. Single-word
// keywords match on token boundaries; keywords containing a space match as
// substrings of the normalized text.
type Matcher struct {
	vocab map[Intent][]string
	order []Intent
}

var tokenRe = regexp.MustCompile(`[a-z0-9_$]+`)

// NewMatcher constructs a matcher over the given vocabulary. A nil or empty
// vocabulary falls back to DefaultVocabulary.
func NewMatcher(vocab map[Intent][]string) *Matcher {
	if len(vocab) == 0 {
		vocab = DefaultVocabulary()
	}
	order := make([]Intent, 0, len(vocab))
	for tag := range vocab {
		order = append(order, tag)
	}
	// Fixed total ordering on tag names makes tie-breaks stable across runs.
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return &Matcher{vocab: vocab, order: order}
}

// DefaultVocabulary returns the built-in per-intent keyword sets.
func DefaultVocabulary() map[Intent][]string {
	return map[Intent][]string{
		Energy:           {"energy", "usage", "consumption", "efficiency", "optimize", "kwh"},
		EnergyMonitoring: {"reading", "latest", "recent", "meter", "sensor", "date"},
		Portfolio:        {"portfolio", "performance", "benchmark", "buildings", "properties", "metrics"},
		Finance:          {"roi", "investment", "budget", "payback", "savings", "contract", "financial"},
		Monitoring:       {"monitor", "alert", "anomaly", "status", "health", "uptime"},
		Time:             {"time", "today", "now", "clock", "hour"},
		Document:         {"document", "pdf", "extract", "summarize", "upload", "attachment"},
		OutOfScope: {
			"weather", "cooking", "recipe", "sports", "super bowl",
			"politics", "election", "geography", "capital of", "movie",
		},
	}
}

// Match scores text against every intent tag and returns the argmax. Ties go
// to the lexicographically smaller tag; a zero max yields Unknown.
func (m *Matcher) Match(text string) Match {
	normalized := strings.ToLower(text)
	tokens := make(map[string]bool)
	for _, tok := range tokenRe.FindAllString(normalized, -1) {
		tokens[tok] = true
	}

	scores := make(map[Intent]float64)
	hits := make(map[Intent][]string)
	for _, tag := range m.order {
		keywords := m.vocab[tag]
		if len(keywords) == 0 {
			continue
		}
		var matched []string
		for _, kw := range keywords {
			if matchKeyword(kw, normalized, tokens) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		scores[tag] = float64(len(matched)) / float64(len(keywords))
		hits[tag] = matched
	}

	best := Unknown
	bestScore := 0.0
	for _, tag := range m.order {
		if s, ok := scores[tag]; ok && s > bestScore {
			best, bestScore = tag, s
		}
	}
	if bestScore == 0 {
		return Match{Intent: Unknown, Confidence: 0, Reason: "no keywords matched", AllMatches: scores}
	}

	reason := fmt.Sprintf("matched %d of %d keywords for %s", len(hits[best]), len(m.vocab[best]), best)
	if best == OutOfScope {
		reason = fmt.Sprintf("out-of-scope vocabulary matched: %s", strings.Join(hits[best], ", "))
	}
	return Match{Intent: best, Confidence: bestScore, Reason: reason, AllMatches: scores}
}

func matchKeyword(kw, normalized string, tokens map[string]bool) bool {
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(normalized, kw)
	}
	return tokens[kw]
}
