package routing

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ent0n29/switchboard/internal/logging"
)

func TestResolve(t *testing.T) {
	r := NewResolver(NewCatalog(nil, ""), logging.Discard())
	tests := []struct {
		raw  string
		want Result
	}{
		{"sales, 0.95", Result{Kind: KindOk, Route: "sales", Confidence: 0.95, Raw: "sales, 0.95"}},
		{"  Technical_Support ,0.7 ", Result{Kind: KindOk, Route: "technical_support", Confidence: 0.7, Raw: "  Technical_Support ,0.7 "}},
		{"order_logistics, high", Result{Kind: KindOk, Route: "order_logistics", Confidence: 0.8, Raw: "order_logistics, high"}},
		{"marketing, 1.7", Result{Kind: KindOk, Route: "marketing", Confidence: 1.7, Raw: "marketing, 1.7"}},
		{"\"sales\", 0.6, extra", Result{Kind: KindOk, Route: "sales", Confidence: 0.6, Raw: "\"sales\", 0.6, extra"}},
		{"sales, NaN", Result{Kind: KindOk, Route: "sales", Confidence: DefaultConfidence, Raw: "sales, NaN"}},
		{"sales, Inf", Result{Kind: KindOk, Route: "sales", Confidence: DefaultConfidence, Raw: "sales, Inf"}},
		{"sales, -infinity", Result{Kind: KindOk, Route: "sales", Confidence: DefaultConfidence, Raw: "sales, -infinity"}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, r.Resolve(tc.raw)); diff != "" {
			t.Fatalf("Resolve(%q) mismatch (-want +got):\n%s", tc.raw, diff)
		}
	}
}

func TestResolveFallbacks(t *testing.T) {
	r := NewResolver(NewCatalog(nil, ""), logging.Discard())
	for _, raw := range []string{"bogus-route, 0.9", "marketing", "", ", 0.9", "bogus, nope"} {
		got := r.Resolve(raw)
		if !got.Fallback() || got.Route != RouteCustomerService || got.Confidence != FallbackConfidence {
			t.Fatalf("Resolve(%q) = %+v, want customer_service fallback", raw, got)
		}
		if got.Reason == "" {
			t.Fatalf("Resolve(%q) fallback has no reason", raw)
		}
	}
}

func TestResolveUsesConfiguredDefault(t *testing.T) {
	catalog := NewCatalog([]Route{{Name: "Billing"}, {Name: "Shipping"}}, "billing")
	r := NewResolver(catalog, logging.Discard())
	if got := r.Resolve("sales, 0.9"); got.Route != "billing" || !got.Fallback() {
		t.Fatalf("Resolve(sales) = %+v, want billing fallback", got)
	}
	if got := r.Resolve("shipping, 0.4"); got.Route != "shipping" || got.Fallback() {
		t.Fatalf("Resolve(shipping) = %+v", got)
	}
	if got := r.Fallback("oracle timeout"); got.Route != "billing" || got.Reason != "oracle timeout" {
		t.Fatalf("Fallback() = %+v", got)
	}
}

func TestCatalogSuggestions(t *testing.T) {
	c := NewCatalog(nil, "")
	got := c.Suggestions(RouteOrderLogistics)
	want := []string{"Can I change my delivery address?", "How do I track my package?", "What's your return policy?"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Suggestions mismatch (-want +got):\n%s", diff)
	}
	got[0] = "mutated"
	if c.Suggestions(RouteOrderLogistics)[0] == "mutated" {
		t.Fatalf("Suggestions returned shared slice")
	}
	if diff := cmp.Diff(defaultSuggestions, c.Suggestions("unknown")); diff != "" {
		t.Fatalf("unknown route suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogAddsMissingDefault(t *testing.T) {
	c := NewCatalog([]Route{{Name: "sales"}, {Name: "SALES"}}, "triage")
	if diff := cmp.Diff([]string{"sales", "triage"}, c.Names()); diff != "" {
		t.Fatalf("Names mismatch (-want +got):\n%s", diff)
	}
	if !c.Has("triage") || c.Default() != "triage" {
		t.Fatalf("default route not registered")
	}
}
