package retry

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults for RetryAfter.
const (
	DefaultRetryAfterMaxRetries = 1
	DefaultRetryAfterMinSleep   = time.Second
)

// RetryAfter waits for the duration in the Retry-After header, then allows
// a bounded number of retries. Typically mapped to 429 and 503.
type RetryAfter struct {
	Base
	// MinSleep is the lower bound of the wait.
	MinSleep time.Duration

	wait func(context.Context, time.Duration) bool
	now  func() time.Time
}

// NewRetryAfter creates a RetryAfter processor.
func NewRetryAfter(maxRetries int, minSleep time.Duration) *RetryAfter {
	return &RetryAfter{
		Base:     Base{MaxRetry: maxRetries},
		MinSleep: minSleep,
		wait:     sleep,
		now:      time.Now,
	}
}

// RetryAfterFactory returns a Factory with the given limits.
func RetryAfterFactory(maxRetries int, minSleep time.Duration) Factory {
	return func() Processor { return NewRetryAfter(maxRetries, minSleep) }
}

// DoRetry allows the retry while under the limit. Synchronous sessions
// wait here.
func (p *RetryAfter) DoRetry(ctx context.Context, rc *Context) bool {
	if !p.Allow() {
		return false
	}
	if rc.Async {
		return true
	}
	return p.wait(ctx, p.Delay(rc))
}

// Process waits before an asynchronous retry.
func (p *RetryAfter) Process(ctx context.Context, rc *Context) bool {
	return p.wait(ctx, p.Delay(rc))
}

// Delay returns the wait for the triggering response.
func (p *RetryAfter) Delay(rc *Context) time.Duration {
	var header string
	if rc.Base != nil && rc.Base.Response != nil {
		header = rc.Base.Response.Headers.Get("Retry-After")
	}
	d := ParseRetryAfter(header, p.now())
	if d < p.MinSleep {
		d = p.MinSleep
	}
	return d
}

// ParseRetryAfter parses a Retry-After value given either as seconds or as
// an HTTP date. Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
