package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff retries with exponential delays. Typically mapped to 502, 503,
// 504 and errors.StatusTransportFailure.
type Backoff struct {
	Base
	policy *backoff.ExponentialBackOff
	wait   func(context.Context, time.Duration) bool
	next   time.Duration
}

// BackoffConfig configures a Backoff processor.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultBackoffConfig returns sensible defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// NewBackoff creates a Backoff processor.
func NewBackoff(cfg BackoffConfig) *Backoff {
	policy := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	policy.Reset()
	return &Backoff{
		Base:   Base{MaxRetry: cfg.MaxRetries},
		policy: policy,
		wait:   sleep,
	}
}

// BackoffFactory returns a Factory with the given configuration.
func BackoffFactory(cfg BackoffConfig) Factory {
	return func() Processor { return NewBackoff(cfg) }
}

// DoRetry allows the retry while under the limit. Synchronous sessions
// wait here.
func (p *Backoff) DoRetry(ctx context.Context, rc *Context) bool {
	if !p.Allow() {
		return false
	}
	p.next = p.policy.NextBackOff()
	if p.next == backoff.Stop {
		return false
	}
	if rc.Async {
		return true
	}
	return p.wait(ctx, p.next)
}

// Process waits before an asynchronous retry.
func (p *Backoff) Process(ctx context.Context, _ *Context) bool {
	return p.wait(ctx, p.next)
}
