// Package config loads runtime configuration from YAML with environment
// overrides. Construction is defaults-first: Load starts from Default and
// layers the file and environment on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/enerflow/enerflow/runtime/fault"
)

type (
	// Config is the root configuration document.
	Config struct {
		Logging LoggingConfig `yaml:"logging"`
		Engine  EngineConfig  `yaml:"engine"`
		Planner PlannerConfig `yaml:"planner"`
		Intent  IntentConfig  `yaml:"intent"`
		Redis   RedisConfig   `yaml:"redis"`
		Agents  AgentsConfig  `yaml:"agents"`
	}

	// LoggingConfig controls log output.
	LoggingConfig struct {
		// Debug enables debug-level logging.
		Debug bool `yaml:"debug"`
	}

	// EngineConfig bounds the execution engine.
	EngineConfig struct {
		MaxConcurrentWorkflows    int  `yaml:"max_concurrent_workflows"`
		DefaultStepTimeoutSeconds int  `yaml:"default_step_timeout_seconds"`
		EnableIntelligentRouting  bool `yaml:"enable_intelligent_routing"`
		CacheEnabled              bool `yaml:"cache_enabled"`
		CacheTTLSeconds           int  `yaml:"cache_ttl_seconds"`
	}

	// PlannerConfig selects and parameterizes the planner family.
	PlannerConfig struct {
		// DefaultPlanningMethod is systematic, learning, hybrid or auto.
		DefaultPlanningMethod string `yaml:"default_planning_method"`
		// ModelProvider is "openai" or "anthropic".
		ModelProvider string `yaml:"model_provider"`
		// ModelAPIKey is the provider credential; absence forces the
		// rule-based fallback.
		ModelAPIKey string `yaml:"model_api_key"`
		// ModelID names the provider model.
		ModelID string `yaml:"model_id"`
		// ModelRequestsPerSecond caps outbound model calls.
		ModelRequestsPerSecond float64 `yaml:"model_requests_per_second"`
		// CompanyPortfolioMap overrides the entity-extraction company map.
		CompanyPortfolioMap map[string]string `yaml:"company_portfolio_map"`
		// DateRanges overrides the period literal table.
		DateRanges map[string]DateRange `yaml:"date_ranges"`
	}

	// DateRange is an ISO start/end pair.
	DateRange struct {
		StartDate string `yaml:"start_date"`
		EndDate   string `yaml:"end_date"`
	}

	// IntentConfig overrides the matcher vocabulary.
	IntentConfig struct {
		Keywords map[string][]string `yaml:"keywords"`
	}

	// RedisConfig locates the optional Redis plan cache.
	RedisConfig struct {
		Addr string `yaml:"addr"`
	}

	// AgentsConfig parameterizes domain agent construction.
	AgentsConfig struct {
		// MonitoringFeedDSN locates the energy feed; empty degrades the
		// monitoring agent.
		MonitoringFeedDSN string `yaml:"monitoring_feed_dsn"`
	}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			MaxConcurrentWorkflows:    4,
			DefaultStepTimeoutSeconds: 30,
			EnableIntelligentRouting:  true,
			CacheEnabled:              false,
			CacheTTLSeconds:           300,
		},
		Planner: PlannerConfig{
			DefaultPlanningMethod:  "auto",
			ModelProvider:          "openai",
			ModelID:                "gpt-4o-mini",
			ModelRequestsPerSecond: 2,
		},
		Agents: AgentsConfig{
			MonitoringFeedDSN: "synthetic://meters",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fault.Wrap(fault.ConfigError, "read config file", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fault.Wrap(fault.ConfigError, "parse config file", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the closed-set fields.
func (c Config) Validate() error {
	switch c.Planner.DefaultPlanningMethod {
	case "systematic", "learning", "hybrid", "auto":
	default:
		return fault.Newf(fault.ConfigError, "unknown default_planning_method %q", c.Planner.DefaultPlanningMethod)
	}
	switch c.Planner.ModelProvider {
	case "openai", "anthropic":
	default:
		return fault.Newf(fault.ConfigError, "unknown model_provider %q", c.Planner.ModelProvider)
	}
	if c.Engine.MaxConcurrentWorkflows < 1 {
		return fault.New(fault.ConfigError, "max_concurrent_workflows must be at least 1")
	}
	if c.Engine.DefaultStepTimeoutSeconds < 1 {
		return fault.New(fault.ConfigError, "default_step_timeout_seconds must be at least 1")
	}
	return nil
}

// Environment override variables.
const (
	envModelAPIKey       = "ENERFLOW_MODEL_API_KEY"
	envModelProvider     = "ENERFLOW_MODEL_PROVIDER"
	envModelID           = "ENERFLOW_MODEL_ID"
	envRedisAddr         = "ENERFLOW_REDIS_ADDR"
	envMonitoringFeedDSN = "ENERFLOW_MONITORING_FEED_DSN"
)

func applyEnv(cfg *Config) {
	if v := os.Getenv(envModelAPIKey); v != "" {
		cfg.Planner.ModelAPIKey = v
	}
	if v := os.Getenv(envModelProvider); v != "" {
		cfg.Planner.ModelProvider = v
	}
	if v := os.Getenv(envModelID); v != "" {
		cfg.Planner.ModelID = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv(envMonitoringFeedDSN); v != "" {
		cfg.Agents.MonitoringFeedDSN = v
	}
}

// String renders the config for debug logs with the credential redacted.
func (c Config) String() string {
	redacted := c
	if redacted.Planner.ModelAPIKey != "" {
		redacted.Planner.ModelAPIKey = "[redacted]"
	}
	data, err := yaml.Marshal(redacted)
	if err != nil {
		return fmt.Sprintf("%+v", redacted)
	}
	return string(data)
}
