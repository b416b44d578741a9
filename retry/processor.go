package retry

import (
	"context"
	"time"

	limaerrors "github.com/kbukum/lima/errors"
)

// Processor is a pluggable retry policy.
type Processor interface {
	// DoRetry decides whether the failed attempt is retried.
	DoRetry(ctx context.Context, rc *Context) bool
	// Process applies the fix before an asynchronous retry.
	Process(ctx context.Context, rc *Context) bool
}

// Factory creates a fresh Processor for one logical call.
type Factory func() Processor

// Session is the part of a client session processors may act on.
type Session interface {
	// Login refreshes the session credentials and reports success.
	Login(ctx context.Context) bool
}

// Context is the per-call retry state. It is created for each logical call
// and dropped when the call returns.
type Context struct {
	// Err is the error returned to the caller if the call is not retried.
	Err error
	// Base is the library error underlying Err.
	Base *limaerrors.CallError
	// Attempt counts dispatches so far, starting at 1.
	Attempt int
	// Async is set for asynchronous sessions.
	Async bool
	// Session is the client session that issued the call.
	Session Session
	// CallID correlates log lines of one logical call.
	CallID string
	// Values holds processor-private state.
	Values map[string]any
}

// Status returns the status code of the triggering error.
func (rc *Context) Status() int {
	if rc.Base == nil {
		return 0
	}
	return rc.Base.StatusCode
}

// Base counts retries and refuses once MaxRetry is reached. Built-in
// processors embed it.
type Base struct {
	MaxRetry int
	count    int
}

// Allow consumes one retry and reports whether the limit still allowed it.
func (b *Base) Allow() bool {
	if b.count >= b.MaxRetry {
		return false
	}
	b.count++
	return true
}

// Count returns the retries consumed so far.
func (b *Base) Count() int { return b.count }

// Process allows the retry unchanged.
func (b *Base) Process(context.Context, *Context) bool { return true }

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
