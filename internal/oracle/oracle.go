// Package oracle is the boundary to whatever classifies messages and drafts replies.
// Implementations talk to Anthropic, to an external HTTP service, or answer locally.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/switchboard/internal/routing"
)

// Request is what an oracle sees for one message. Context is the rendered recent
// conversation, oldest line first.
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Context   string `json:"context,omitempty"`
}

// Oracle classifies a message into free text that should contain "route, confidence"
// and drafts a reply for a chosen route. Output is untrusted.
type Oracle interface {
	Classify(ctx context.Context, req Request) (string, error)
	Respond(ctx context.Context, route string, req Request) (string, error)
	Name() string
}

// Config controls oracle construction.
type Config struct {
	Mode            string
	HTTPURL         string
	HTTPTimeout     time.Duration
	AnthropicAPIKey string
	AnthropicModel  string
	Routes          []routing.Route
}

// NewOracle builds the oracle for cfg.Mode. auto prefers Anthropic when a key is
// configured, then an HTTP endpoint, then the local mock; the remote ones fall back
// to the mock on error.
func NewOracle(cfg Config) (Oracle, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}
	routes := cfg.Routes
	if len(routes) == 0 {
		routes = routing.DefaultRoutes()
	}

	switch mode {
	case "auto":
		return newAutoOracle(cfg, routes), nil
	case "anthropic":
		if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
			return nil, errors.New("anthropic api key is required for anthropic mode")
		}
		return NewAnthropicOracle(cfg.AnthropicAPIKey, cfg.AnthropicModel, routes), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("oracle HTTP url is required for http mode")
		}
		return NewHTTPOracle(cfg.HTTPURL, cfg.HTTPTimeout), nil
	case "mock":
		return NewMockOracle(routes), nil
	default:
		return nil, fmt.Errorf("unsupported oracle mode %q", cfg.Mode)
	}
}

func newAutoOracle(cfg Config, routes []routing.Route) Oracle {
	mock := NewMockOracle(routes)
	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		return NewFallbackOracle(NewAnthropicOracle(cfg.AnthropicAPIKey, cfg.AnthropicModel, routes), mock)
	}
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		return NewFallbackOracle(NewHTTPOracle(cfg.HTTPURL, cfg.HTTPTimeout), mock)
	}
	return mock
}
