package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the routing service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool
	LogLevel         string
	LogFormat        string

	// ConfigPath points at an optional YAML overlay with route and keyword tables.
	ConfigPath string

	SessionMaxTurns      int
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration
	ContextTurns         int
	MaxMessageLength     int

	EscalationMaxTurns int
	Signals            SignalsConfig

	DefaultRoute string
	Routes       []RouteConfig

	OracleMode      string
	OracleHTTPURL   string
	OracleTimeout   time.Duration
	AnthropicAPIKey string
	AnthropicModel  string

	DatabaseURL       string
	SQLitePath        string
	TurnRetentionDays int
	RetentionSchedule string

	SlackBotToken          string
	SlackEscalationChannel string

	TicketAPIJWTSecret string
	TicketAPIJWTIssuer string
}

// SignalsConfig tunes the emotion/urgency aggregator. Empty keyword lists keep the built-in tables.
type SignalsConfig struct {
	ShortTextWeight      float64  `yaml:"short_text_weight"`
	LongTextWeight       float64  `yaml:"long_text_weight"`
	NegativeThreshold    float64  `yaml:"negative_threshold"`
	UrgencyKeywordWeight float64  `yaml:"urgency_keyword_weight"`
	UrgencyKeywords      []string `yaml:"urgency_keywords"`
	FrustrationKeywords  []string `yaml:"frustration_keywords"`
}

// RouteConfig describes one responder category.
type RouteConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Suggestions []string `yaml:"suggestions"`
}

// Load reads the optional YAML overlay, then environment variables, and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "switchboard"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		LogFormat:            envOrDefault("LOG_FORMAT", "text"),
		ConfigPath:           stringsTrimSpace("CONFIG_PATH"),
		ShutdownTimeout:      15 * time.Second,
		SessionMaxTurns:      10,
		SessionIdleTimeout:   30 * time.Minute,
		SessionSweepInterval: time.Minute,
		ContextTurns:         5,
		MaxMessageLength:     1000,
		EscalationMaxTurns:   10,
		Signals: SignalsConfig{
			ShortTextWeight:      0.7,
			LongTextWeight:       0.3,
			NegativeThreshold:    -0.5,
			UrgencyKeywordWeight: 0.2,
		},
		DefaultRoute:      "customer_service",
		OracleMode:        envOrDefault("ORACLE_MODE", "auto"),
		OracleHTTPURL:     stringsTrimSpace("ORACLE_HTTP_URL"),
		OracleTimeout:     20 * time.Second,
		AnthropicAPIKey:   stringsTrimSpace("ANTHROPIC_API_KEY"),
		AnthropicModel:    envOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		SQLitePath:        stringsTrimSpace("SQLITE_PATH"),
		TurnRetentionDays: 90,
		RetentionSchedule: envOrDefault("RETENTION_SCHEDULE", "0 3 * * *"),

		SlackBotToken:          stringsTrimSpace("SLACK_BOT_TOKEN"),
		SlackEscalationChannel: stringsTrimSpace("SLACK_ESCALATION_CHANNEL"),
		TicketAPIJWTSecret:     stringsTrimSpace("TICKET_API_JWT_SECRET"),
		TicketAPIJWTIssuer:     stringsTrimSpace("TICKET_API_JWT_ISSUER"),
	}

	if cfg.ConfigPath != "" {
		if err := applyFile(&cfg, cfg.ConfigPath); err != nil {
			return Config{}, err
		}
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionMaxTurns, err = intFromEnv("SESSION_MAX_TURNS", cfg.SessionMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionSweepInterval, err = durationFromEnv("SESSION_SWEEP_INTERVAL", cfg.SessionSweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextTurns, err = intFromEnv("CONTEXT_TURNS", cfg.ContextTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMessageLength, err = intFromEnv("MAX_MESSAGE_LENGTH", cfg.MaxMessageLength)
	if err != nil {
		return Config{}, err
	}
	cfg.EscalationMaxTurns, err = intFromEnv("ESCALATION_MAX_TURNS", cfg.EscalationMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.Signals.NegativeThreshold, err = floatFromEnv("NEGATIVE_SENTIMENT_THRESHOLD", cfg.Signals.NegativeThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.OracleTimeout, err = durationFromEnv("ORACLE_TIMEOUT", cfg.OracleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnRetentionDays, err = intFromEnv("TURN_RETENTION_DAYS", cfg.TurnRetentionDays)
	if err != nil {
		return Config{}, err
	}
	if v := stringsTrimSpace("DEFAULT_ROUTE"); v != "" {
		cfg.DefaultRoute = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SessionMaxTurns <= 0 {
		return fmt.Errorf("SESSION_MAX_TURNS must be positive")
	}
	if c.SessionIdleTimeout < time.Second {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be at least 1s")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.ContextTurns <= 0 {
		return fmt.Errorf("CONTEXT_TURNS must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive")
	}
	if c.EscalationMaxTurns <= 0 {
		return fmt.Errorf("ESCALATION_MAX_TURNS must be positive")
	}
	if c.Signals.NegativeThreshold < -1 || c.Signals.NegativeThreshold > 0 {
		return fmt.Errorf("NEGATIVE_SENTIMENT_THRESHOLD must be within [-1, 0]")
	}
	if c.Signals.ShortTextWeight < 0 || c.Signals.LongTextWeight < 0 {
		return fmt.Errorf("signal weights must be non-negative")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	if c.TurnRetentionDays < 0 {
		return fmt.Errorf("TURN_RETENTION_DAYS must be >= 0")
	}
	if strings.TrimSpace(c.DefaultRoute) == "" {
		return fmt.Errorf("default route must not be empty")
	}
	if len(c.Routes) > 0 {
		found := false
		for _, r := range c.Routes {
			if strings.EqualFold(strings.TrimSpace(r.Name), c.DefaultRoute) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("default route %q is not in the configured route set", c.DefaultRoute)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
