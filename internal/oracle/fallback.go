package oracle

import (
	"context"
	"errors"
	"fmt"
)

// FallbackOracle tries primary first and uses fallback on error. Cancellation and
// deadline errors are returned as is.
type FallbackOracle struct {
	primary  Oracle
	fallback Oracle
}

func NewFallbackOracle(primary, fallback Oracle) *FallbackOracle {
	return &FallbackOracle{primary: primary, fallback: fallback}
}

func (o *FallbackOracle) Primary() Oracle   { return o.primary }
func (o *FallbackOracle) Secondary() Oracle { return o.fallback }

func (o *FallbackOracle) Name() string {
	return o.primary.Name() + "+" + o.fallback.Name()
}

func (o *FallbackOracle) Classify(ctx context.Context, req Request) (string, error) {
	return o.run(ctx, func(x Oracle) (string, error) { return x.Classify(ctx, req) })
}

func (o *FallbackOracle) Respond(ctx context.Context, route string, req Request) (string, error) {
	return o.run(ctx, func(x Oracle) (string, error) { return x.Respond(ctx, route, req) })
}

func (o *FallbackOracle) run(ctx context.Context, call func(Oracle) (string, error)) (string, error) {
	out, err := call(o.primary)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return "", err
	}
	if o.fallback == nil {
		return "", err
	}
	fallbackOut, fallbackErr := call(o.fallback)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary oracle error: %w; fallback oracle error: %v", err, fallbackErr)
	}
	return fallbackOut, nil
}
