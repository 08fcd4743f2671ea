// Command enerflow wires the orchestration runtime and serves one request
// from the command line, printing the shaped response as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"github.com/enerflow/enerflow/agents/document"
	"github.com/enerflow/enerflow/agents/finance"
	"github.com/enerflow/enerflow/agents/monitoring"
	"github.com/enerflow/enerflow/agents/portfolio"
	"github.com/enerflow/enerflow/agents/summarizer"
	"github.com/enerflow/enerflow/agents/system"
	"github.com/enerflow/enerflow/config"
	rediscache "github.com/enerflow/enerflow/features/cache/redis"
	"github.com/enerflow/enerflow/features/model/anthropic"
	"github.com/enerflow/enerflow/features/model/middleware"
	"github.com/enerflow/enerflow/features/model/openai"
	"github.com/enerflow/enerflow/runtime/engine"
	"github.com/enerflow/enerflow/runtime/intent"
	"github.com/enerflow/enerflow/runtime/planner"
	"github.com/enerflow/enerflow/runtime/planner/adaptive"
	"github.com/enerflow/enerflow/runtime/planner/hybrid"
	"github.com/enerflow/enerflow/runtime/planner/learning"
	"github.com/enerflow/enerflow/runtime/planner/rule"
	"github.com/enerflow/enerflow/runtime/processor"
	"github.com/enerflow/enerflow/runtime/registry"
	"github.com/enerflow/enerflow/runtime/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file")
		method     = flag.String("method", "", "planning method override (systematic|learning|hybrid|auto)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, `usage: enerflow [flags] "request text"`)
		os.Exit(2)
	}
	text := strings.Join(flag.Args(), " ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "enerflow:", err)
		os.Exit(1)
	}
	if *method != "" {
		cfg.Planner.DefaultPlanningMethod = *method
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "enerflow:", err)
			os.Exit(1)
		}
	}

	format := log.FormatText
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *debug || cfg.Logging.Debug {
		ctx = log.Context(ctx, log.WithDebug())
	}

	proc, eng, err := build(ctx, cfg)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "runtime construction failed"})
		os.Exit(1)
	}
	defer func() {
		if err := eng.Shutdown(ctx); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "shutdown failed"})
		}
	}()

	resp, err := proc.Process(ctx, text)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "request failed"})
		os.Exit(1)
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "response encoding failed"})
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// build wires config into registry, engine, planner chain and processor.
func build(ctx context.Context, cfg config.Config) (*processor.Processor, *engine.Engine, error) {
	reg := registry.New()
	registrations := []struct {
		name    string
		factory registry.Factory
		tags    []string
	}{
		{system.Name, system.Factory, []string{"system"}},
		{monitoring.Name, monitoring.Factory(cfg.Agents.MonitoringFeedDSN), []string{"energy"}},
		{portfolio.Name, portfolio.Factory, []string{"energy", "portfolio"}},
		{finance.Name, finance.Factory, []string{"finance"}},
		{document.Name, document.Factory, []string{"documents"}},
		{summarizer.Name, summarizer.Factory, []string{"documents"}},
	}
	for _, r := range registrations {
		if err := reg.Register(r.name, r.factory, r.tags...); err != nil {
			return nil, nil, err
		}
	}

	logger := telemetry.NewClueLogger()
	eng := engine.New(engine.Options{
		Registry: reg,
		Config: engine.Config{
			MaxConcurrentWorkflows: cfg.Engine.MaxConcurrentWorkflows,
			DefaultStepTimeout:     time.Duration(cfg.Engine.DefaultStepTimeoutSeconds) * time.Second,
		},
		Logger:  logger,
		Metrics: telemetry.NewClueMetrics(),
		Tracer:  telemetry.NewClueTracer(),
	})

	pl, err := buildPlanner(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	proc, err := processor.New(processor.Options{
		Engine:  eng,
		Matcher: intent.NewMatcher(intentVocabulary(cfg)),
		Planner: pl,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return proc, eng, nil
}

func buildPlanner(ctx context.Context, cfg config.Config, logger telemetry.Logger) (planner.Planner, error) {
	rulePlanner := rule.New(rule.Options{
		CompanyPortfolios: cfg.Planner.CompanyPortfolioMap,
		DateRanges:        ruleDateRanges(cfg.Planner.DateRanges),
	})

	client, err := buildModelClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	learningPlanner, err := learning.New(client, rulePlanner, logger)
	if err != nil {
		return nil, err
	}
	hybridPlanner, err := hybrid.New(hybrid.PrimaryLearning, rulePlanner, learningPlanner)
	if err != nil {
		return nil, err
	}

	var pl planner.Planner
	if cfg.Engine.EnableIntelligentRouting {
		pl, err = adaptive.New(rulePlanner, learningPlanner, hybridPlanner, cfg.Planner.DefaultPlanningMethod)
		if err != nil {
			return nil, err
		}
	} else {
		switch cfg.Planner.DefaultPlanningMethod {
		case adaptive.MethodSystematic:
			pl = rulePlanner
		case adaptive.MethodLearning:
			pl = learningPlanner
		default:
			pl = hybridPlanner
		}
	}

	if cfg.Engine.CacheEnabled {
		cache, err := buildPlanCache(cfg)
		if err != nil {
			return nil, err
		}
		pl = planner.NewCaching(pl, cache, time.Duration(cfg.Engine.CacheTTLSeconds)*time.Second)
	}
	return pl, nil
}

// buildModelClient returns nil when no credential is configured; the learning
// planner then routes everything through its rule fallback.
func buildModelClient(ctx context.Context, cfg config.Config, logger telemetry.Logger) (planner.ModelClient, error) {
	if cfg.Planner.ModelAPIKey == "" {
		logger.Info(ctx, "model credential absent, learning planner will fall back to rules")
		return nil, nil
	}
	var (
		client planner.ModelClient
		err    error
	)
	switch cfg.Planner.ModelProvider {
	case "anthropic":
		client, err = anthropic.NewFromAPIKey(cfg.Planner.ModelAPIKey, cfg.Planner.ModelID)
	default:
		client, err = openai.NewFromAPIKey(cfg.Planner.ModelAPIKey, cfg.Planner.ModelID)
	}
	if err != nil {
		return nil, err
	}
	rps := cfg.Planner.ModelRequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return middleware.NewRateLimited(client, rate.Limit(rps), 4), nil
}

func buildPlanCache(cfg config.Config) (planner.Cache, error) {
	if cfg.Redis.Addr != "" {
		return rediscache.NewFromAddr(cfg.Redis.Addr, "")
	}
	return planner.NewMemoryCache(), nil
}

func intentVocabulary(cfg config.Config) map[intent.Intent][]string {
	if len(cfg.Intent.Keywords) == 0 {
		return nil
	}
	vocab := make(map[intent.Intent][]string, len(cfg.Intent.Keywords))
	for tag, words := range cfg.Intent.Keywords {
		vocab[intent.Intent(tag)] = words
	}
	return vocab
}

func ruleDateRanges(in map[string]config.DateRange) map[string]rule.DateRange {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]rule.DateRange, len(in))
	for name, r := range in {
		out[name] = rule.DateRange{Start: r.StartDate, End: r.EndDate}
	}
	return out
}
