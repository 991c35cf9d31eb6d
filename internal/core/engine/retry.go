package engine

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/metrics"
)

// RetryConfig bounds the retry policy.
type RetryConfig struct {
	// MaxAttempts counts the first try; 1 disables retries.
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// JitterRatio adds up to ratio*base of random delay.
	JitterRatio float64
	// SecondaryRateLimitDelay is used when a secondary limit carries no
	// Retry-After.
	SecondaryRateLimitDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:             3,
		InitialBackoff:          1 * time.Second,
		MaxBackoff:              30 * time.Second,
		BackoffMultiplier:       2.0,
		JitterRatio:             0.1,
		SecondaryRateLimitDelay: 60 * time.Second,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts < 1 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	if c.JitterRatio < 0 {
		c.JitterRatio = 0
	}
	if c.SecondaryRateLimitDelay <= 0 {
		c.SecondaryRateLimitDelay = def.SecondaryRateLimitDelay
	}
	return c
}

// Doer executes a single request; *Executor satisfies it.
type Doer interface {
	Execute(ctx context.Context, spec RequestSpec, cred Credential) (*Response, error)
}

// Retrier re-issues transient failures with exponential backoff.
type Retrier struct {
	Doer    Doer
	Tracker *Tracker
	Config  RetryConfig
	// Sleep and Rand are replaceable for tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Rand   func() float64
	Logger *logging.Logger
}

// ExecuteWithRetry runs spec until it succeeds, fails permanently, or the
// attempt budget is spent. The last error is returned with Attempts set.
func (r *Retrier) ExecuteWithRetry(ctx context.Context, spec RequestSpec, cred Credential) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := r.Config.normalized()
	resource := spec.Resource()

	var (
		lastErr *Error
		made    int
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if wait, ok := r.Tracker.ShouldPreemptivelyWait(resource); ok {
			state, _ := r.Tracker.State(resource)
			logWarn(r.Logger, "Rate limit exhausted, waiting for reset",
				zap.String("resource", resource),
				zap.Time("reset_at", state.ResetAt),
				zap.Duration("wait", wait),
			)
			metrics.RecordRateLimitWait(resource, "preemptive")
			if err := r.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		made = attempt
		resp, err := r.Doer.Execute(ctx, spec, cred)
		if err == nil {
			return resp, nil
		}

		apiErr, ok := AsError(err)
		if !ok {
			// context errors and anything unclassified are terminal
			return nil, err
		}
		lastErr = apiErr
		if !apiErr.Retryable() || attempt == cfg.MaxAttempts {
			break
		}

		delay := r.delayFor(cfg, apiErr, attempt)
		logDebug(r.Logger, "Retrying request",
			zap.String("kind", string(apiErr.Kind)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("delay", delay),
		)
		metrics.RecordRetry(resource, string(apiErr.Kind))
		if apiErr.Kind == KindSecondaryRateLimit {
			metrics.RecordRateLimitWait(resource, "secondary")
		}
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	if lastErr == nil {
		return nil, NewError(KindNetwork, "no attempts made")
	}
	return nil, lastErr.withAttempts(made)
}

func (r *Retrier) delayFor(cfg RetryConfig, apiErr *Error, attempt int) time.Duration {
	if apiErr.Kind == KindSecondaryRateLimit {
		if apiErr.RetryAfter > 0 {
			return apiErr.RetryAfter
		}
		return cfg.SecondaryRateLimitDelay
	}
	return Backoff(cfg, attempt, r.random)
}

// Backoff returns the delay before attempt k+1:
// min(initial*multiplier^(k-1) + jitter, max).
func Backoff(cfg RetryConfig, k int, random func() float64) time.Duration {
	cfg = cfg.normalized()
	if k < 1 {
		k = 1
	}
	base := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(k-1))
	if base > float64(cfg.MaxBackoff) {
		base = float64(cfg.MaxBackoff)
	}
	jitter := 0.0
	if random != nil && cfg.JitterRatio > 0 {
		jitter = random() * cfg.JitterRatio * base
	}
	delay := base + jitter
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	return time.Duration(delay)
}

func (r *Retrier) random() float64 {
	if r.Rand != nil {
		return r.Rand()
	}
	return rand.Float64()
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
