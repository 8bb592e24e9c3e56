package routing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

const (
	FallbackConfidence = 0.5
	DefaultConfidence  = 0.8
)

type Kind string

const (
	KindOk       Kind = "ok"
	KindFallback Kind = "fallback"
)

// Result is a resolved route. Kind is fallback when the route token could not be
// used; Reason then says why.
type Result struct {
	Kind       Kind    `json:"kind"`
	Route      string  `json:"route"`
	Confidence float64 `json:"confidence"`
	Raw        string  `json:"raw,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

func (r Result) Fallback() bool { return r.Kind == KindFallback }

// Resolver turns free-form classifier output into a route from the catalog. It never fails.
type Resolver struct {
	catalog *Catalog
	logger  *slog.Logger
}

func NewResolver(catalog *Catalog, logger *slog.Logger) *Resolver {
	if catalog == nil {
		catalog = NewCatalog(nil, "")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Resolve expects "<route>, <confidence>". Out-of-range confidences pass through as parsed.
func (r *Resolver) Resolve(raw string) Result {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) < 2 {
		return r.fallback(raw, "expected \"route, confidence\"")
	}

	route := normalizeRoute(parts[0])
	if !r.catalog.Has(route) {
		return r.fallback(raw, "unknown route "+strconv.Quote(route))
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		r.logger.Warn("classifier confidence unparseable", "raw", raw, "route", route)
		confidence = DefaultConfidence
	}
	return Result{Kind: KindOk, Route: route, Confidence: confidence, Raw: raw}
}

// Fallback is the result used when no classifier output is available at all.
func (r *Resolver) Fallback(reason string) Result {
	return r.fallback("", reason)
}

func (r *Resolver) fallback(raw, reason string) Result {
	r.logger.Warn("classifier output unusable, using fallback route", "raw", raw, "reason", reason, "route", r.catalog.Default())
	return Result{
		Kind:       KindFallback,
		Route:      r.catalog.Default(),
		Confidence: FallbackConfidence,
		Raw:        raw,
		Reason:     reason,
	}
}

func normalizeRoute(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	return strings.Trim(token, "\"'`.")
}
