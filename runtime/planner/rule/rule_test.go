package rule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/enerflow/runtime/intent"
	"github.com/enerflow/enerflow/runtime/planner"
)

func fullAgents() []planner.AgentInfo {
	return []planner.AgentInfo{
		{Name: AgentSystem, Tools: tools("get_current_time", "scope_check")},
		{Name: AgentMonitoring, Tools: tools("get_latest_energy_reading", "analyze_usage_patterns", "detect_anomalies")},
		{Name: AgentPortfolio, Tools: tools("get_energy_usage", "benchmark_portfolio", "generate_performance_report", "identify_optimization_opportunities", "search_facilities")},
		{Name: AgentFinance, Tools: tools("calculate_project_roi", "optimize_eaas_contract")},
		{Name: AgentDocument, Tools: tools("extract_document")},
		{Name: AgentSummarization, Tools: tools("summarize_text")},
	}
}

func tools(names ...string) []planner.ToolInfo {
	infos := make([]planner.ToolInfo, len(names))
	for i, n := range names {
		infos[i] = planner.ToolInfo{Name: n}
	}
	return infos
}

func planFor(t *testing.T, text string, tag intent.Intent) *planner.Plan {
	t.Helper()
	p := New(Options{})
	plan, err := p.Plan(context.Background(), planner.Request{
		Text:   text,
		Match:  intent.Match{Intent: tag, Confidence: 0.5},
		Agents: fullAgents(),
	})
	require.NoError(t, err)
	require.NoError(t, planner.Validate(plan, planner.Request{Text: text, Agents: fullAgents()}))
	require.Equal(t, planner.MethodRule, plan.Method)
	return plan
}

func TestPlanNoAgents(t *testing.T) {
	p := New(Options{})
	plan, err := p.Plan(context.Background(), planner.Request{Text: "anything"})
	require.NoError(t, err)
	require.Equal(t, planner.NoAgentsWorkflowID, plan.WorkflowID)
	require.Equal(t, planner.StatusNoAgents, plan.Status)
	require.Empty(t, plan.Steps)
	require.Contains(t, plan.Reason, "no agents")
}

func TestPlanLatestReading(t *testing.T) {
	plan := planFor(t, "what is the date of the most recent energy usage reading?", intent.EnergyMonitoring)
	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	require.Equal(t, AgentMonitoring, step.Agent)
	require.Equal(t, "get_latest_energy_reading", step.Tool)
	require.Equal(t, true, step.Parameters["include_details"])
}

func TestPlanPortfolioPerformance(t *testing.T) {
	plan := planFor(t, "show me walmart portfolio performance metrics", intent.Portfolio)
	require.Len(t, plan.Steps, 3)
	require.Equal(t, "get_energy_usage", plan.Steps[0].Tool)
	require.Equal(t, "benchmark_portfolio", plan.Steps[1].Tool)
	require.Equal(t, "generate_performance_report", plan.Steps[2].Tool)
	for _, step := range plan.Steps {
		require.Equal(t, AgentPortfolio, step.Agent)
		require.Equal(t, "PORTFOLIO-002", step.Parameters["portfolio_id"])
	}
	require.Equal(t, map[string]any{
		"start_date": "2025-01-01",
		"end_date":   "2025-12-31",
	}, plan.Steps[0].Parameters["date_range"])
	require.Equal(t, planner.Ref(1, "usage"), plan.Steps[1].Parameters["usage_data"])
	require.Equal(t, planner.Ref(2, "benchmark"), plan.Steps[2].Parameters["benchmark"])
	require.Contains(t, plan.Reason, "walmart")
}

func TestPlanPortfolioWithoutPerformanceCue(t *testing.T) {
	plan := planFor(t, "how are the buildings in the microsoft portfolio doing", intent.Portfolio)
	require.Len(t, plan.Steps, 2)
	require.Equal(t, "PORTFOLIO-001", plan.Steps[0].Parameters["portfolio_id"])
}

func TestPlanFinanceROI(t *testing.T) {
	plan := planFor(t, "calculate ROI for LED retrofit project for building 123 with $50000 budget", intent.Finance)
	require.Len(t, plan.Steps, 2)

	step1 := plan.Steps[0]
	require.Equal(t, AgentFinance, step1.Agent)
	require.Equal(t, "calculate_project_roi", step1.Tool)
	details := step1.Parameters["project_details"].(map[string]any)
	require.Equal(t, 50000.0, details["total_investment"])
	require.Equal(t, "LED", details["technology_type"])
	require.Contains(t, details["project_name"], "building_123")

	step2 := plan.Steps[1]
	require.Equal(t, "optimize_eaas_contract", step2.Tool)
	require.Equal(t, planner.Ref(1, "roi_percent"), step2.Parameters["roi_analysis"])
}

func TestPlanOutOfScope(t *testing.T) {
	plan := planFor(t, "who won the super bowl last year?", intent.OutOfScope)
	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	require.Equal(t, AgentSystem, step.Agent)
	require.Equal(t, "scope_check", step.Tool)
	require.NotEmpty(t, step.Parameters["supported_topics"])
	require.NotEmpty(t, step.Parameters["unsupported_topics"])
	require.Equal(t, "who won the super bowl last year?", step.Parameters["query"])
}

func TestPlanTime(t *testing.T) {
	plan := planFor(t, "what time is it now?", intent.Time)
	require.Len(t, plan.Steps, 1)
	require.Equal(t, AgentSystem, plan.Steps[0].Agent)
	require.Equal(t, "get_current_time", plan.Steps[0].Tool)
}

func TestPlanEnergyTwoStep(t *testing.T) {
	plan := planFor(t, "how can we optimize energy usage in building 5 this year", intent.Energy)
	require.Len(t, plan.Steps, 2)
	require.Equal(t, AgentMonitoring, plan.Steps[0].Agent)
	require.Equal(t, "analyze_usage_patterns", plan.Steps[0].Tool)
	require.Equal(t, "building_5", plan.Steps[0].Parameters["building_id"])
	require.Equal(t, AgentPortfolio, plan.Steps[1].Agent)
	require.Equal(t, "identify_optimization_opportunities", plan.Steps[1].Tool)
	require.Equal(t, planner.Ref(1, "patterns"), plan.Steps[1].Parameters["usage_analysis"])
}

func TestPlanDocument(t *testing.T) {
	plan := planFor(t, "summarize the attached pdf document", intent.Document)
	require.Len(t, plan.Steps, 2)
	require.Equal(t, AgentDocument, plan.Steps[0].Agent)
	require.Equal(t, AgentSummarization, plan.Steps[1].Agent)
	require.Equal(t, planner.Ref(1, "text"), plan.Steps[1].Parameters["text"])
}

func TestPlanGenericSearchFallback(t *testing.T) {
	plan := planFor(t, "tell me about facility operations", intent.Unknown)
	require.Len(t, plan.Steps, 1)
	require.Equal(t, "search_facilities", plan.Steps[0].Tool)
}

func TestPlanDegradesWhenRoutedAgentMissing(t *testing.T) {
	p := New(Options{})
	agents := []planner.AgentInfo{
		{Name: AgentSystem, Tools: tools("get_current_time", "scope_check")},
	}
	plan, err := p.Plan(context.Background(), planner.Request{
		Text:   "calculate roi for a retrofit",
		Match:  intent.Match{Intent: intent.Finance},
		Agents: agents,
	})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	require.Equal(t, "scope_check", plan.Steps[0].Tool)
	require.Contains(t, plan.Reason, "degraded")
}

func TestPlanReasonNamesDetectedAndDefaulted(t *testing.T) {
	plan := planFor(t, "calculate ROI for HVAC upgrade with $120k budget", intent.Finance)
	require.Contains(t, plan.Reason, "detected:")
	require.Contains(t, plan.Reason, "technology=HVAC")
	require.Contains(t, plan.Reason, "investment=120000")
	require.Contains(t, plan.Reason, "defaulted:")
	require.Contains(t, plan.Reason, "building=building_default")
}

func TestExtractEntities(t *testing.T) {
	opts := Options{
		CompanyPortfolios: DefaultCompanyPortfolios(),
		DateRanges:        DefaultDateRanges(),
		DefaultPortfolio:  "PORTFOLIO-001",
		DefaultBuilding:   "building_default",
	}

	t.Run("building number", func(t *testing.T) {
		ext := extract("usage for building 42", opts)
		require.Equal(t, "building_42", ext.building)
		require.True(t, ext.buildingDetected)
	})

	t.Run("named building", func(t *testing.T) {
		ext := extract("usage for the riverside building", opts)
		require.Equal(t, "riverside_building", ext.building)
	})

	t.Run("article is not a building name", func(t *testing.T) {
		ext := extract("usage for the building", opts)
		require.Equal(t, "building_default", ext.building)
		require.False(t, ext.buildingDetected)
	})

	t.Run("company mapping", func(t *testing.T) {
		ext := extract("benchmark amazon facilities", opts)
		require.Equal(t, "PORTFOLIO-003", ext.portfolio)
		require.Equal(t, "amazon", ext.company)
	})

	t.Run("explicit portfolio reference", func(t *testing.T) {
		ext := extract("benchmark portfolio portfolio-007", opts)
		require.Equal(t, "PORTFOLIO-007", ext.portfolio)
		require.True(t, ext.portfolioDetected)
	})

	t.Run("period phrase", func(t *testing.T) {
		ext := extract("usage last quarter", opts)
		require.Equal(t, "last_quarter", ext.period)
		require.Equal(t, DateRange{Start: "2025-04-01", End: "2025-06-30"}, ext.dateRange)
	})

	t.Run("period default", func(t *testing.T) {
		ext := extract("usage report", opts)
		require.Equal(t, "current_year", ext.period)
		require.False(t, ext.periodDetected)
	})

	t.Run("dollar amount", func(t *testing.T) {
		ext := extract("project with $1,250,000 investment", opts)
		require.Equal(t, 1250000.0, ext.investment)
		require.True(t, ext.investmentDetected)
	})

	t.Run("k suffix", func(t *testing.T) {
		ext := extract("budget of 75k for controls", opts)
		require.Equal(t, 75000.0, ext.investment)
		require.Equal(t, "Controls", ext.technology)
	})

	t.Run("bare building number is not an amount", func(t *testing.T) {
		ext := extract("roi for building 123", opts)
		require.Equal(t, 50000.0, ext.investment)
		require.False(t, ext.investmentDetected)
	})

	t.Run("dollar with k suffix", func(t *testing.T) {
		ext := extract("roi on a $50k solar project", opts)
		require.Equal(t, 50000.0, ext.investment)
		require.Equal(t, "Solar", ext.technology)
	})
}
