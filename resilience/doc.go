// Package resilience guards the HTTP transport of a client session.
//
//   - CircuitBreaker fails fast while the remote service keeps failing.
//   - RateLimiter paces outgoing requests with a token bucket.
//   - Bulkhead caps the number of requests in flight.
//
// Retries are not handled here; they are decided per call by the retry
// package so that response mappings stay in control.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("petstore"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	if err := rl.Wait(ctx); err != nil {
//	    return err
//	}
//	err := cb.Execute(func() error { return send(ctx) })
package resilience
