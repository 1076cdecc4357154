package ai

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Retrier repeats a call on retryable errors with capped exponential
// backoff and +/-20% jitter. A RateLimitError carrying RetryAfter waits
// that long instead.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *zap.Logger
}

func (r Retrier) withDefaults() Retrier {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = 500 * time.Millisecond
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = 4 * time.Second
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	return r
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx ends.
func (r Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	r = r.withDefaults()
	backoff := r.BaseDelay
	var err error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil || !Retryable(err) || attempt == r.MaxAttempts {
			return err
		}
		wait := withJitter(backoff)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		} else if wait > r.MaxDelay {
			wait = r.MaxDelay
		}
		r.Logger.Warn("retrying ai request",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		backoff *= 2
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}

// parseRetryAfter interprets a Retry-After header value as seconds or an
// HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d.Truncate(time.Second)
		}
	}
	return 0
}
