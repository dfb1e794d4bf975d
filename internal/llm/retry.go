package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// RetryOptions tunes the retrying generator wrapper.
type RetryOptions struct {
	// MaxRetries is the number of extra attempts after the first call.
	MaxRetries int

	// RequestTimeout bounds each individual call. <=0 means no per-call bound.
	RequestTimeout time.Duration

	// RateLimitRPS is a global limit across all calls through this wrapper.
	// Set to <=0 to disable.
	RateLimitRPS float64

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

type retryingGenerator struct {
	next    Generator
	opts    RetryOptions
	limiter *rate.Limiter
}

// WithRetry wraps a generator with rate limiting, per-call timeouts and
// bounded retries for transient failures. Permanent failures return
// immediately.
func WithRetry(next Generator, opts RetryOptions) Generator {
	opts = opts.withDefaults()
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return &retryingGenerator{next: next, opts: opts, limiter: limiter}
}

func (g *retryingGenerator) GenerateText(ctx context.Context, req Request) (Response, error) {
	var lastResp Response
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastResp, err
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return lastResp, err
			}
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if g.opts.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, g.opts.RequestTimeout)
		}
		resp, err := g.next.GenerateText(reqCtx, req)
		if cancel != nil {
			cancel()
		}
		lastResp = resp
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return lastResp, ctx.Err()
		}
		if !IsTransient(err) || attempt >= g.opts.MaxRetries {
			return lastResp, err
		}

		sleep := backoffSleep(g.opts.BackoffInitial, g.opts.BackoffMax, g.opts.BackoffJitterFrac, attempt)
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return lastResp, ctx.Err()
		}
	}
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
