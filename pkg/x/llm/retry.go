package llm

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func ExpBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return initial
	}
	d := initial << attempt
	if d <= 0 {
		return max
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

func WithJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	// +/-20% jitter.
	j := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * j)
}

type RetryOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *zap.Logger
	Op             string
}

// Retry calls fn until it succeeds, attempts run out or ctx is done.
func Retry[T any](ctx context.Context, opts RetryOptions, fn func(context.Context) (T, error)) (T, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt >= opts.MaxAttempts-1 {
			break
		}

		backoff := WithJitter(ExpBackoff(attempt, opts.InitialBackoff, opts.MaxBackoff))
		opts.Logger.Warn("transient failure",
			zap.String("op", opts.Op),
			zap.Int("retry", attempt+1),
			zap.Int("max", opts.MaxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if !SleepWithContext(ctx, backoff) {
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
