package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.SessionMaxTurns != 10 {
		t.Fatalf("SessionMaxTurns = %d, want 10", cfg.SessionMaxTurns)
	}
	if cfg.Signals.NegativeThreshold != -0.5 {
		t.Fatalf("NegativeThreshold = %v, want -0.5", cfg.Signals.NegativeThreshold)
	}
	if cfg.DefaultRoute != "customer_service" {
		t.Fatalf("DefaultRoute = %q, want customer_service", cfg.DefaultRoute)
	}
	if cfg.OracleMode != "auto" {
		t.Fatalf("OracleMode = %q, want auto", cfg.OracleMode)
	}
	if cfg.OracleHTTPURL != "" {
		t.Fatalf("OracleHTTPURL = %q, want empty default", cfg.OracleHTTPURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SESSION_MAX_TURNS", "4")
	t.Setenv("SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("NEGATIVE_SENTIMENT_THRESHOLD", "-0.3")
	t.Setenv("ORACLE_HTTP_URL", "http://localhost:7777/oracle")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionMaxTurns != 4 {
		t.Fatalf("SessionMaxTurns = %d, want 4", cfg.SessionMaxTurns)
	}
	if cfg.SessionIdleTimeout != 90*time.Second {
		t.Fatalf("SessionIdleTimeout = %v, want 90s", cfg.SessionIdleTimeout)
	}
	if cfg.Signals.NegativeThreshold != -0.3 {
		t.Fatalf("NegativeThreshold = %v, want -0.3", cfg.Signals.NegativeThreshold)
	}
	if cfg.OracleHTTPURL != "http://localhost:7777/oracle" {
		t.Fatalf("OracleHTTPURL = %q, want explicit value", cfg.OracleHTTPURL)
	}
}

func TestLoadFileOverlayWithEnvPrecedence(t *testing.T) {
	setCoreEnvEmpty(t)
	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	body := `
default_route: support
routes:
  - name: Support
    description: general help
    suggestions: ["How do I reset my password?"]
  - name: billing
    description: invoices and refunds
session:
  max_turns: 6
  idle_timeout: 10m
signals:
  negative_threshold: -0.4
  urgency_keywords: [outage, down]
  frustration_keywords: [fed up]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("NEGATIVE_SENTIMENT_THRESHOLD", "-0.6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	wantRoutes := []RouteConfig{
		{Name: "support", Description: "general help", Suggestions: []string{"How do I reset my password?"}},
		{Name: "billing", Description: "invoices and refunds"},
	}
	if diff := cmp.Diff(wantRoutes, cfg.Routes); diff != "" {
		t.Fatalf("Routes mismatch (-want +got):\n%s", diff)
	}
	if cfg.DefaultRoute != "support" {
		t.Fatalf("DefaultRoute = %q, want support", cfg.DefaultRoute)
	}
	if cfg.SessionMaxTurns != 6 || cfg.SessionIdleTimeout != 10*time.Minute {
		t.Fatalf("session = (%d, %v), want (6, 10m)", cfg.SessionMaxTurns, cfg.SessionIdleTimeout)
	}
	if cfg.Signals.NegativeThreshold != -0.6 {
		t.Fatalf("NegativeThreshold = %v, want env value -0.6", cfg.Signals.NegativeThreshold)
	}
	if diff := cmp.Diff([]string{"outage", "down"}, cfg.Signals.UrgencyKeywords); diff != "" {
		t.Fatalf("UrgencyKeywords mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnknownDefaultRoute(t *testing.T) {
	setCoreEnvEmpty(t)
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte("routes:\n  - name: sales\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for default route outside the route set")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SESSION_MAX_TURNS":            "0",
		"SESSION_IDLE_TIMEOUT":         "soon",
		"NEGATIVE_SENTIMENT_THRESHOLD": "0.4",
		"APP_ALLOW_ANY_ORIGIN":         "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q expected error", key, val)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"CONFIG_PATH",
		"SESSION_MAX_TURNS",
		"SESSION_IDLE_TIMEOUT",
		"SESSION_SWEEP_INTERVAL",
		"CONTEXT_TURNS",
		"MAX_MESSAGE_LENGTH",
		"ESCALATION_MAX_TURNS",
		"NEGATIVE_SENTIMENT_THRESHOLD",
		"DEFAULT_ROUTE",
		"ORACLE_MODE",
		"ORACLE_HTTP_URL",
		"ORACLE_TIMEOUT",
		"ANTHROPIC_API_KEY",
		"ANTHROPIC_MODEL",
		"DATABASE_URL",
		"SQLITE_PATH",
		"TURN_RETENTION_DAYS",
		"RETENTION_SCHEDULE",
		"SLACK_BOT_TOKEN",
		"SLACK_ESCALATION_CHANNEL",
		"TICKET_API_JWT_SECRET",
		"TICKET_API_JWT_ISSUER",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
