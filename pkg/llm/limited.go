package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited wraps a Generator with a token bucket so bursts of organizer and
// extraction calls do not overload a local backend.
type Limited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewLimited allows perMinute calls per minute with a burst of one. A
// non-positive perMinute returns next unchanged.
func NewLimited(next Generator, perMinute int) Generator {
	if perMinute <= 0 {
		return next
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
}

func (l *Limited) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return l.next.Generate(ctx, req)
}

// Unwrap returns the wrapped generator.
func (l *Limited) Unwrap() Generator { return l.next }
