// Package rule implements deterministic keyword-and-regex planning. Routing
// is a closed table over intent tags; entity extraction pulls buildings,
// portfolios, periods, technologies and investment amounts out of the request
// text with literal defaults for anything absent.
package rule

import (
	"context"
	"fmt"
	"regexp"

	"github.com/enerflow/enerflow/runtime/fault"
	"github.com/enerflow/enerflow/runtime/intent"
	"github.com/enerflow/enerflow/runtime/planner"
)

// Well-known agent names the routing table targets.
const (
	AgentSystem        = "system"
	AgentMonitoring    = "energy-monitoring"
	AgentPortfolio     = "portfolio-intelligence"
	AgentFinance       = "finance"
	AgentDocument      = "document-processing"
	AgentSummarization = "summarization"
)

// SupportedTopics and UnsupportedTopics describe the runtime's scope for
// scope_check responses.
var (
	SupportedTopics = []string{
		"energy usage and efficiency",
		"portfolio performance and benchmarking",
		"project finance and EaaS contracts",
		"energy monitoring and anomaly detection",
		"document extraction and summarization",
	}
	UnsupportedTopics = []string{
		"weather", "cooking", "sports", "politics", "geography", "entertainment",
	}
)

var (
	latestCueRe      = regexp.MustCompile(`(?i)\b(latest|recent|current|date|now|reading)\b`)
	performanceCueRe = regexp.MustCompile(`(?i)\b(performance|benchmark|compare|report)\b`)
)

// Options configures the planner's extraction tables. Zero values fall back
// to the package defaults.
type Options struct {
	// CompanyPortfolios maps company names found in request text to
	// portfolio identifiers.
	CompanyPortfolios map[string]string
	// DateRanges maps recognized period literals to ISO date ranges.
	DateRanges map[string]DateRange
	// DefaultPortfolio is used when no company or explicit portfolio is
	// detected.
	DefaultPortfolio string
	// DefaultBuilding is used when no building is detected.
	DefaultBuilding string
}

// Planner routes requests by intent against a fixed table.
type Planner struct {
	opts Options
}

// New constructs a rule planner, filling unset options with defaults.
func New(opts Options) *Planner {
	if opts.CompanyPortfolios == nil {
		opts.CompanyPortfolios = DefaultCompanyPortfolios()
	}
	if opts.DateRanges == nil {
		opts.DateRanges = DefaultDateRanges()
	}
	if opts.DefaultPortfolio == "" {
		opts.DefaultPortfolio = "PORTFOLIO-001"
	}
	if opts.DefaultBuilding == "" {
		opts.DefaultBuilding = "building_default"
	}
	return &Planner{opts: opts}
}

// DefaultCompanyPortfolios returns the built-in company-to-portfolio map.
func DefaultCompanyPortfolios() map[string]string {
	return map[string]string{
		"microsoft": "PORTFOLIO-001",
		"walmart":   "PORTFOLIO-002",
		"amazon":    "PORTFOLIO-003",
		"google":    "PORTFOLIO-004",
		"target":    "PORTFOLIO-005",
	}
}

// DefaultDateRanges returns the built-in period literal table.
func DefaultDateRanges() map[string]DateRange {
	return map[string]DateRange{
		"current_year":  {Start: "2025-01-01", End: "2025-12-31"},
		"last_year":     {Start: "2024-01-01", End: "2024-12-31"},
		"last_quarter":  {Start: "2025-04-01", End: "2025-06-30"},
		"this_quarter":  {Start: "2025-07-01", End: "2025-09-30"},
		"last_month":    {Start: "2025-06-01", End: "2025-06-30"},
		"last_6_months": {Start: "2025-01-01", End: "2025-06-30"},
	}
}

// Plan builds a workflow plan from the routing table. It never consults
// external services; identical requests yield identical steps.
func (p *Planner) Plan(_ context.Context, req planner.Request) (*planner.Plan, error) {
	if len(req.Agents) == 0 {
		return &planner.Plan{
			WorkflowID: planner.NoAgentsWorkflowID,
			Status:     planner.StatusNoAgents,
			Method:     planner.MethodRule,
			Reason:     "no agents are available to serve the request",
		}, nil
	}

	ext := extract(req.Text, p.opts)
	steps, routeReason := p.route(req, ext)

	plan := &planner.Plan{
		WorkflowID: planner.NewWorkflowID("wf-rule"),
		Status:     planner.StatusReady,
		Method:     planner.MethodRule,
		Reason: fmt.Sprintf("intent=%s (confidence %.2f): %s; %s",
			req.Match.Intent, req.Match.Confidence, routeReason, ext.describe()),
		Steps: steps,
	}
	if err := planner.Validate(plan, req); err != nil {
		// A routed agent is not registered; degrade to whatever can still
		// answer rather than returning a plan the engine would reject.
		if fallback := p.fallbackSteps(req); fallback != nil {
			plan.Steps = fallback
			plan.Reason += "; routed agent unavailable, degraded to fallback step"
			return plan, nil
		}
		return nil, fault.Wrap(fault.PlanInvalid, "no registered agent can serve the request", err)
	}
	return plan, nil
}

func (p *Planner) route(req planner.Request, ext entities) ([]planner.Step, string) {
	text := req.Text
	switch req.Match.Intent {
	case intent.OutOfScope:
		return []planner.Step{{
			Index: 0,
			Agent: AgentSystem,
			Tool:  "scope_check",
			Parameters: map[string]any{
				"query":              text,
				"supported_topics":   toAnySlice(SupportedTopics),
				"unsupported_topics": toAnySlice(UnsupportedTopics),
			},
		}}, "out-of-scope request routed to scope_check"

	case intent.Time:
		return []planner.Step{{
			Index:      0,
			Agent:      AgentSystem,
			Tool:       "get_current_time",
			Parameters: map[string]any{"timezone": "UTC"},
		}}, "time request routed to get_current_time"

	case intent.EnergyMonitoring:
		if latestCueRe.MatchString(text) {
			return []planner.Step{{
				Index:      0,
				Agent:      AgentMonitoring,
				Tool:       "get_latest_energy_reading",
				Parameters: map[string]any{"include_details": true},
			}}, "latest-reading cue routed to get_latest_energy_reading"
		}
		return []planner.Step{{
			Index:      0,
			Agent:      AgentMonitoring,
			Tool:       "analyze_usage_patterns",
			Parameters: map[string]any{"building_id": ext.building, "time_period": ext.period},
		}}, "monitoring request without latest cue routed to usage analysis"

	case intent.Monitoring:
		return []planner.Step{{
			Index:      0,
			Agent:      AgentMonitoring,
			Tool:       "detect_anomalies",
			Parameters: map[string]any{"building_id": ext.building},
		}}, "health request routed to anomaly detection"

	case intent.Energy:
		return []planner.Step{
			{
				Index:      0,
				Agent:      AgentMonitoring,
				Tool:       "analyze_usage_patterns",
				Parameters: map[string]any{"building_id": ext.building, "time_period": ext.period},
			},
			{
				Index: 1,
				Agent: AgentPortfolio,
				Tool:  "identify_optimization_opportunities",
				Parameters: map[string]any{
					"building_id":    ext.building,
					"usage_analysis": planner.Ref(1, "patterns"),
				},
			},
		}, "energy request routed to usage analysis plus optimization"

	case intent.Portfolio:
		usage := planner.Step{
			Index: 0,
			Agent: AgentPortfolio,
			Tool:  "get_energy_usage",
			Parameters: map[string]any{
				"portfolio_id": ext.portfolio,
				"date_range":   ext.dateRange.asParams(),
			},
		}
		benchmark := planner.Step{
			Index: 1,
			Agent: AgentPortfolio,
			Tool:  "benchmark_portfolio",
			Parameters: map[string]any{
				"portfolio_id": ext.portfolio,
				"usage_data":   planner.Ref(1, "usage"),
			},
		}
		if performanceCueRe.MatchString(text) {
			report := planner.Step{
				Index: 2,
				Agent: AgentPortfolio,
				Tool:  "generate_performance_report",
				Parameters: map[string]any{
					"portfolio_id": ext.portfolio,
					"usage_data":   planner.Ref(1, "usage"),
					"benchmark":    planner.Ref(2, "benchmark"),
				},
			}
			return []planner.Step{usage, benchmark, report},
				"performance cue routed to usage, benchmark and report"
		}
		return []planner.Step{usage, benchmark}, "portfolio request routed to usage and benchmark"

	case intent.Finance:
		projectName := fmt.Sprintf("%s retrofit - %s", ext.technology, ext.building)
		return []planner.Step{
			{
				Index: 0,
				Agent: AgentFinance,
				Tool:  "calculate_project_roi",
				Parameters: map[string]any{
					"project_details": map[string]any{
						"project_name":     projectName,
						"technology_type":  ext.technology,
						"total_investment": ext.investment,
					},
				},
			},
			{
				Index: 1,
				Agent: AgentFinance,
				Tool:  "optimize_eaas_contract",
				Parameters: map[string]any{
					"technology_type": ext.technology,
					"roi_analysis":    planner.Ref(1, "roi_percent"),
				},
			},
		}, "finance request routed to ROI and contract optimization"

	case intent.Document:
		return []planner.Step{
			{
				Index:      0,
				Agent:      AgentDocument,
				Tool:       "extract_document",
				Parameters: map[string]any{"query": text},
			},
			{
				Index:      1,
				Agent:      AgentSummarization,
				Tool:       "summarize_text",
				Parameters: map[string]any{"text": planner.Ref(1, "text")},
			},
		}, "document request routed to extraction plus summarization"
	}

	return []planner.Step{{
		Index:      0,
		Agent:      AgentPortfolio,
		Tool:       "search_facilities",
		Parameters: map[string]any{"query": text},
	}}, "no specific route matched, using generic facility search"
}

// fallbackSteps returns a single scope_check step when the system agent is
// available, nil otherwise.
func (p *Planner) fallbackSteps(req planner.Request) []planner.Step {
	if !req.HasTool(AgentSystem, "scope_check") {
		return nil
	}
	return []planner.Step{{
		Index: 0,
		Agent: AgentSystem,
		Tool:  "scope_check",
		Parameters: map[string]any{
			"query":              req.Text,
			"supported_topics":   toAnySlice(SupportedTopics),
			"unsupported_topics": toAnySlice(UnsupportedTopics),
		},
	}}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
