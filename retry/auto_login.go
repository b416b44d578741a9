package retry

import "context"

// DefaultAutoLoginMaxRetries is the default retry limit for AutoLogin.
const DefaultAutoLoginMaxRetries = 1

// AutoLogin refreshes the session credentials and retries. Typically mapped
// to 401.
type AutoLogin struct {
	Base
}

// NewAutoLogin creates an AutoLogin processor.
func NewAutoLogin(maxRetries int) *AutoLogin {
	return &AutoLogin{Base: Base{MaxRetry: maxRetries}}
}

// AutoLoginFactory returns a Factory with the given limit.
func AutoLoginFactory(maxRetries int) Factory {
	return func() Processor { return NewAutoLogin(maxRetries) }
}

// DoRetry allows the retry while under the limit. Synchronous sessions log
// in here.
func (p *AutoLogin) DoRetry(ctx context.Context, rc *Context) bool {
	if rc.Session == nil || !p.Allow() {
		return false
	}
	if rc.Async {
		return true
	}
	return rc.Session.Login(ctx)
}

// Process logs in before an asynchronous retry.
func (p *AutoLogin) Process(ctx context.Context, rc *Context) bool {
	return rc.Session.Login(ctx)
}
