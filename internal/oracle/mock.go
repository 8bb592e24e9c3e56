package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/switchboard/internal/routing"
)

var mockKeywords = []struct {
	route    string
	keywords []string
}{
	{routing.RouteTechnicalSupport, []string{"broken", "not working", "won't", "error", "crash", "repair", "warranty", "setup", "install", "troubleshoot", "defect", "screen", "battery"}},
	{routing.RouteOrderLogistics, []string{"order", "track", "shipping", "ship", "delivery", "deliver", "package", "parcel", "return", "refund", "exchange"}},
	{routing.RouteMarketing, []string{"promo", "discount", "coupon", "deal", "sale", "loyalty", "reward", "code"}},
	{routing.RouteSales, []string{"price", "cost", "buy", "purchase", "recommend", "compare", "in stock", "available", "laptop", "phone", "tv", "headphones"}},
}

// MockOracle classifies by keyword and answers with canned text. It never fails.
type MockOracle struct {
	known map[string]routing.Route
}

func NewMockOracle(routes []routing.Route) *MockOracle {
	known := make(map[string]routing.Route, len(routes))
	for _, r := range routes {
		known[r.Name] = r
	}
	return &MockOracle{known: known}
}

func (o *MockOracle) Name() string { return "mock" }

func (o *MockOracle) Classify(_ context.Context, req Request) (string, error) {
	text := strings.ToLower(req.Message)
	for _, entry := range mockKeywords {
		if _, ok := o.known[entry.route]; !ok {
			continue
		}
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.route + ", 0.85", nil
			}
		}
	}
	return routing.RouteCustomerService + ", 0.6", nil
}

func (o *MockOracle) Respond(_ context.Context, route string, req Request) (string, error) {
	team := strings.ReplaceAll(route, "_", " ")
	if r, ok := o.known[route]; ok && r.Description != "" {
		return fmt.Sprintf("Thanks for reaching out. Our %s team handles %s and is looking into this for you.",
			team, strings.ToLower(r.Description)), nil
	}
	return fmt.Sprintf("Thanks for reaching out. Our %s team is looking into this for you.", team), nil
}
