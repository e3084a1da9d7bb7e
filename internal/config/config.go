// Package config loads and validates the single immutable configuration
// tree used by every other package in conduit.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for conduit.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Messaging  MessagingConfig  `yaml:"messaging"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Memory     MemoryConfig     `yaml:"memory"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Agent      AgentConfig      `yaml:"agent"`
	Shell      ShellConfig      `yaml:"shell"`
	Eval       EvalConfig       `yaml:"eval"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "sqlite" or "postgres"
	DSN             string        `yaml:"dsn"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
	RequestTimeout  time.Duration                `yaml:"request_timeout"`
}

type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}

// MessagingConfig configures the outbound/inbound webhook-fronted channel.
type MessagingConfig struct {
	WebhookPath   string `yaml:"webhook_path"`
	VerifyToken   string `yaml:"verify_token"`
	SendTimeout   time.Duration `yaml:"send_timeout"`
}

// DispatcherConfig controls the request pipeline's shared budgets.
type DispatcherConfig struct {
	MaxToolsPerCall        int           `yaml:"max_tools_per_call"`
	ConversationMaxMessages int          `yaml:"conversation_max_messages"`
	HistoryVerbatimCount   int           `yaml:"history_verbatim_count"`
	// CompactionThreshold is the tool-output length, in characters, beyond
	// which internal/toolloop compacts the result (spec default 20000).
	CompactionThreshold    int           `yaml:"compaction_threshold"`
	MaxToolIterations      int           `yaml:"max_tool_iterations"`
	InFlightDrainTimeout   time.Duration `yaml:"in_flight_drain_timeout"`
}

type MemoryConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopKFallback        int     `yaml:"top_k_fallback"`
	EmbeddingProvider   string  `yaml:"embedding_provider"`
	EmbeddingModel      string  `yaml:"embedding_model"`
}

type GuardrailsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	LLMChecks     bool          `yaml:"llm_checks"`
	LLMTimeout    time.Duration `yaml:"llm_timeout"`
	MaxReplyChars int           `yaml:"max_reply_chars"`
}

type TracingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	SampleRate     float64 `yaml:"sample_rate"`
	RetentionDays  int     `yaml:"retention_days"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
}

type AgentConfig struct {
	WriteEnabled      bool          `yaml:"write_enabled"`
	MaxIterations     int           `yaml:"max_iterations"`
	SessionTimeout    time.Duration `yaml:"session_timeout"`
	SessionsDir       string        `yaml:"sessions_dir"`
	ShellAllowlist    []string      `yaml:"shell_allowlist"`
	HITLTimeout       time.Duration `yaml:"hitl_timeout"`
}

type ShellConfig struct {
	ProjectsRoot       string        `yaml:"projects_root"`
	MaxBackgroundProcs int           `yaml:"max_background_procs"`
	CommandTimeout     time.Duration `yaml:"command_timeout"`
	AuditLogPath       string        `yaml:"audit_log_path"`
	PolicyRulesPath    string        `yaml:"policy_rules_path"`
	GCInterval         time.Duration `yaml:"gc_interval"`
}

type EvalConfig struct {
	AutoCurate bool   `yaml:"auto_curate"`
	DatasetDir string `yaml:"dataset_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads, expands, parses, defaults, and validates the configuration
// file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected single document")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "internal/store/migrations"
	}

	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}
	if cfg.LLM.RequestTimeout == 0 {
		cfg.LLM.RequestTimeout = 60 * time.Second
	}

	if cfg.Messaging.WebhookPath == "" {
		cfg.Messaging.WebhookPath = "/webhook"
	}
	if cfg.Messaging.SendTimeout == 0 {
		cfg.Messaging.SendTimeout = 15 * time.Second
	}

	if cfg.Dispatcher.MaxToolsPerCall == 0 {
		cfg.Dispatcher.MaxToolsPerCall = 12
	}
	if cfg.Dispatcher.ConversationMaxMessages == 0 {
		cfg.Dispatcher.ConversationMaxMessages = 40
	}
	if cfg.Dispatcher.HistoryVerbatimCount == 0 {
		cfg.Dispatcher.HistoryVerbatimCount = 8
	}
	if cfg.Dispatcher.CompactionThreshold == 0 {
		cfg.Dispatcher.CompactionThreshold = 20000
	}
	if cfg.Dispatcher.MaxToolIterations == 0 {
		cfg.Dispatcher.MaxToolIterations = 8
	}
	if cfg.Dispatcher.InFlightDrainTimeout == 0 {
		cfg.Dispatcher.InFlightDrainTimeout = 30 * time.Second
	}

	if cfg.Memory.SimilarityThreshold == 0 {
		cfg.Memory.SimilarityThreshold = 1.0
	}
	if cfg.Memory.TopKFallback == 0 {
		cfg.Memory.TopKFallback = 3
	}
	if cfg.Memory.EmbeddingProvider == "" {
		cfg.Memory.EmbeddingProvider = "openai"
	}
	if cfg.Memory.EmbeddingModel == "" {
		cfg.Memory.EmbeddingModel = "text-embedding-3-small"
	}

	if cfg.Guardrails.LLMTimeout == 0 {
		cfg.Guardrails.LLMTimeout = 5 * time.Second
	}
	if cfg.Guardrails.MaxReplyChars == 0 {
		cfg.Guardrails.MaxReplyChars = 8000
	}

	if cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 1.0
	}
	if cfg.Tracing.RetentionDays == 0 {
		cfg.Tracing.RetentionDays = 30
	}

	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 25
	}
	if cfg.Agent.SessionTimeout == 0 {
		cfg.Agent.SessionTimeout = 2 * time.Hour
	}
	if cfg.Agent.SessionsDir == "" {
		cfg.Agent.SessionsDir = "data/agent_sessions"
	}
	if cfg.Agent.HITLTimeout == 0 {
		cfg.Agent.HITLTimeout = 120 * time.Second
	}

	if cfg.Shell.ProjectsRoot == "" {
		cfg.Shell.ProjectsRoot = "./projects"
	}
	if cfg.Shell.MaxBackgroundProcs == 0 {
		cfg.Shell.MaxBackgroundProcs = 5
	}
	if cfg.Shell.CommandTimeout == 0 {
		cfg.Shell.CommandTimeout = 300 * time.Second
	}
	if cfg.Shell.AuditLogPath == "" {
		cfg.Shell.AuditLogPath = "data/command_audit.jsonl"
	}
	if cfg.Shell.GCInterval == 0 {
		cfg.Shell.GCInterval = 5 * time.Minute
	}

	if cfg.Eval.DatasetDir == "" {
		cfg.Eval.DatasetDir = "data/eval"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CONDUIT_HTTP_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("CONDUIT_WEBHOOK_VERIFY_TOKEN")); v != "" {
		cfg.Messaging.VerifyToken = v
	}
}

// ConfigValidationError collects every validation failure found, rather
// than stopping at the first.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	var issues []string

	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlite", "postgres":
	default:
		issues = append(issues, `database.driver must be "sqlite" or "postgres"`)
	}
	if cfg.Database.DSN == "" {
		issues = append(issues, "database.dsn is required")
	}

	if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
		issues = append(issues, fmt.Sprintf("llm.providers missing entry for default_provider %q", cfg.LLM.DefaultProvider))
	}

	if cfg.Dispatcher.MaxToolsPerCall < 0 {
		issues = append(issues, "dispatcher.max_tools_per_call must be >= 0")
	}
	if cfg.Dispatcher.CompactionThreshold < 0 {
		issues = append(issues, "dispatcher.compaction_threshold must be >= 0")
	}

	if cfg.Memory.SimilarityThreshold < 0 {
		issues = append(issues, "memory.similarity_threshold must be >= 0")
	}

	if cfg.Agent.MaxIterations <= 0 {
		issues = append(issues, "agent.max_iterations must be > 0")
	}

	if cfg.Shell.MaxBackgroundProcs <= 0 {
		issues = append(issues, "shell.max_background_procs must be > 0")
	}
	if cfg.Shell.CommandTimeout > 300*time.Second {
		issues = append(issues, "shell.command_timeout must not exceed 300s")
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
