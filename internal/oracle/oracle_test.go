package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ent0n29/switchboard/internal/routing"
)

type stubOracle struct {
	text string
	err  error
}

func (s stubOracle) Name() string { return "stub" }
func (s stubOracle) Classify(context.Context, Request) (string, error) {
	return s.text, s.err
}
func (s stubOracle) Respond(context.Context, string, Request) (string, error) {
	return s.text, s.err
}

func TestNewOracleModes(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{}, "mock"},
		{Config{Mode: "auto", HTTPURL: "http://oracle.test"}, "http+mock"},
		{Config{Mode: "auto", AnthropicAPIKey: "k", HTTPURL: "http://oracle.test"}, "anthropic+mock"},
		{Config{Mode: "mock"}, "mock"},
		{Config{Mode: "http", HTTPURL: "http://oracle.test"}, "http"},
		{Config{Mode: "anthropic", AnthropicAPIKey: "k"}, "anthropic"},
	}
	for _, tc := range cases {
		o, err := NewOracle(tc.cfg)
		if err != nil {
			t.Fatalf("NewOracle(%+v) error = %v", tc.cfg, err)
		}
		if o.Name() != tc.want {
			t.Fatalf("NewOracle(%+v).Name() = %q, want %q", tc.cfg, o.Name(), tc.want)
		}
	}

	for _, cfg := range []Config{{Mode: "http"}, {Mode: "anthropic"}, {Mode: "carrier-pigeon"}} {
		if _, err := NewOracle(cfg); err == nil {
			t.Fatalf("NewOracle(%+v) error = nil, want error", cfg)
		}
	}
}

func TestMockOracleClassify(t *testing.T) {
	o := NewMockOracle(routing.DefaultRoutes())
	cases := map[string]string{
		"My laptop screen is broken":        "technical_support, 0.85",
		"Where is my order?":                "order_logistics, 0.85",
		"Any discount codes this week?":     "marketing, 0.85",
		"How much does the new phone cost?": "sales, 0.85",
		"What are your opening hours?":      "customer_service, 0.6",
	}
	for msg, want := range cases {
		got, err := o.Classify(context.Background(), Request{Message: msg})
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", msg, err)
		}
		if got != want {
			t.Fatalf("Classify(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestMockOracleSkipsUnknownRoutes(t *testing.T) {
	o := NewMockOracle([]routing.Route{{Name: "customer_service"}})
	got, _ := o.Classify(context.Background(), Request{Message: "my order is late"})
	if got != "customer_service, 0.6" {
		t.Fatalf("Classify() = %q, want customer_service fallback", got)
	}
	reply, _ := o.Respond(context.Background(), "customer_service", Request{Message: "hi"})
	if !strings.Contains(reply, "customer service team") {
		t.Fatalf("Respond() = %q", reply)
	}
}

func TestFallbackOracleUsesFallback(t *testing.T) {
	o := NewFallbackOracle(stubOracle{err: errors.New("down")}, stubOracle{text: "fallback"})
	got, err := o.Classify(context.Background(), Request{Message: "x"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != "fallback" {
		t.Fatalf("Classify() = %q, want fallback", got)
	}
}

func TestFallbackOracleDoesNotFallbackOnCancel(t *testing.T) {
	o := NewFallbackOracle(stubOracle{err: context.DeadlineExceeded}, stubOracle{text: "fallback"})
	_, err := o.Respond(context.Background(), "sales", Request{Message: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Respond() error = %v, want deadline exceeded", err)
	}
}

func TestFallbackOracleJoinsErrors(t *testing.T) {
	o := NewFallbackOracle(stubOracle{err: errors.New("primary down")}, stubOracle{err: errors.New("fallback down")})
	_, err := o.Classify(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "primary down") || !strings.Contains(err.Error(), "fallback down") {
		t.Fatalf("Classify() error = %v", err)
	}
}

func TestHTTPOracleJSONAndPlainText(t *testing.T) {
	var got httpOracleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.Op == "classify" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"output":"sales, 0.9"}`)
			return
		}
		_, _ = io.WriteString(w, "  Happy to help!  ")
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, time.Second)
	req := Request{SessionID: "s1", Message: "price?", Context: "User: hi"}
	text, err := o.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if text != "sales, 0.9" || got.SessionID != "s1" || got.Context != "User: hi" {
		t.Fatalf("Classify() = %q, request = %+v", text, got)
	}

	text, err = o.Respond(context.Background(), "sales", req)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if text != "Happy to help!" || got.Route != "sales" || got.Op != "respond" {
		t.Fatalf("Respond() = %q, request = %+v", text, got)
	}
}

func TestHTTPOracleRetriesOnlyRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, time.Second)
	o.retry.Base = time.Millisecond
	text, err := o.Classify(context.Background(), Request{Message: "x"})
	if err != nil || text != "ok" {
		t.Fatalf("Classify() = %q, %v; want ok", text, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}

	var badCalls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer bad.Close()

	o = NewHTTPOracle(bad.URL, time.Second)
	if _, err := o.Classify(context.Background(), Request{Message: "x"}); err == nil {
		t.Fatalf("Classify() error = nil, want 400 error")
	}
	if badCalls.Load() != 1 {
		t.Fatalf("400 was retried: %d calls", badCalls.Load())
	}
}

func TestAnthropicOracleClassify(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": " technical_support, 0.92 "}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 42, "output_tokens": 6}
		}`)
	}))
	defer srv.Close()

	o := NewAnthropicOracle("test-key", "", routing.DefaultRoutes(),
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	got, err := o.Classify(context.Background(), Request{Message: "My TV won't turn on", Context: "User: hello"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != "technical_support, 0.92" {
		t.Fatalf("Classify() = %q", got)
	}
	if body["model"] != DefaultAnthropicModel {
		t.Fatalf("model = %v, want %s", body["model"], DefaultAnthropicModel)
	}
	system, _ := json.Marshal(body["system"])
	if !strings.Contains(string(system), "order_logistics") || !strings.Contains(string(system), "sales, 0.95") {
		t.Fatalf("system prompt missing routes or format: %s", system)
	}
	messages, _ := json.Marshal(body["messages"])
	if !strings.Contains(string(messages), "won't turn on") || !strings.Contains(string(messages), "User: hello") {
		t.Fatalf("user prompt missing message or context: %s", messages)
	}
}

func TestAnthropicOracleSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	o := NewAnthropicOracle("k", "claude-haiku-4-5", nil, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	if _, err := o.Respond(context.Background(), "sales", Request{Message: "x"}); err == nil {
		t.Fatalf("Respond() error = nil, want API error")
	}
}
