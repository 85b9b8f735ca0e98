package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Engine
	limiter *rate.Limiter
}

// RateLimited throttles next to requestsPerMinute calls, shared by every caller of the returned engine.
// A non-positive limit returns next unchanged.
func RateLimited(next Engine, requestsPerMinute int) Engine {
	if next == nil || requestsPerMinute <= 0 {
		return next
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Every(every), 1)}
}

func (r *rateLimited) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Completion{}, err
	}
	return r.next.Generate(ctx, messages, opts)
}

func (r *rateLimited) Stream(ctx context.Context, messages []Message, opts GenerateOptions, onDelta func(string)) (Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Completion{}, err
	}
	return r.next.Stream(ctx, messages, opts, onDelta)
}

func (r *rateLimited) Model() string { return r.next.Model() }
