package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML overlay. Pointers distinguish "unset" from zero values.
type fileConfig struct {
	DefaultRoute string        `yaml:"default_route"`
	Routes       []RouteConfig `yaml:"routes"`
	Session      struct {
		MaxTurns    *int   `yaml:"max_turns"`
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"session"`
	Escalation struct {
		MaxTurns *int `yaml:"max_turns"`
	} `yaml:"escalation"`
	Signals struct {
		ShortTextWeight      *float64 `yaml:"short_text_weight"`
		LongTextWeight       *float64 `yaml:"long_text_weight"`
		NegativeThreshold    *float64 `yaml:"negative_threshold"`
		UrgencyKeywordWeight *float64 `yaml:"urgency_keyword_weight"`
		UrgencyKeywords      []string `yaml:"urgency_keywords"`
		FrustrationKeywords  []string `yaml:"frustration_keywords"`
	} `yaml:"signals"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if v := strings.TrimSpace(fc.DefaultRoute); v != "" {
		cfg.DefaultRoute = v
	}
	for _, r := range fc.Routes {
		r.Name = strings.ToLower(strings.TrimSpace(r.Name))
		if r.Name == "" {
			return fmt.Errorf("config file %s: route without name", path)
		}
		cfg.Routes = append(cfg.Routes, r)
	}
	if fc.Session.MaxTurns != nil {
		cfg.SessionMaxTurns = *fc.Session.MaxTurns
	}
	if v := strings.TrimSpace(fc.Session.IdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config file %s: session.idle_timeout: %w", path, err)
		}
		cfg.SessionIdleTimeout = d
	}
	if fc.Escalation.MaxTurns != nil {
		cfg.EscalationMaxTurns = *fc.Escalation.MaxTurns
	}

	s := fc.Signals
	if s.ShortTextWeight != nil {
		cfg.Signals.ShortTextWeight = *s.ShortTextWeight
	}
	if s.LongTextWeight != nil {
		cfg.Signals.LongTextWeight = *s.LongTextWeight
	}
	if s.NegativeThreshold != nil {
		cfg.Signals.NegativeThreshold = *s.NegativeThreshold
	}
	if s.UrgencyKeywordWeight != nil {
		cfg.Signals.UrgencyKeywordWeight = *s.UrgencyKeywordWeight
	}
	if len(s.UrgencyKeywords) > 0 {
		cfg.Signals.UrgencyKeywords = s.UrgencyKeywords
	}
	if len(s.FrustrationKeywords) > 0 {
		cfg.Signals.FrustrationKeywords = s.FrustrationKeywords
	}
	return nil
}
