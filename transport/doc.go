// Package transport sends bound requests over HTTP.
//
// HTTP is the default Transport of a client session. It owns one
// connection pool, applies session credentials and TLS settings, opens a
// client span per request and injects the W3C trace context. The circuit
// breaker, rate limiter and bulkhead from the resilience package are applied
// when configured.
//
// Transport failures (refused connections, DNS errors, timeouts, an open
// circuit) are returned as errors of kind transport with the synthetic
// status errors.StatusTransportFailure. Any HTTP response, whatever its
// status code, is returned as a Response for the caller to resolve.
//
//	t, err := transport.New(transport.Config{
//	    BaseURL: "https://petstore.example.com/v2",
//	    Auth:    transport.BearerAuth("token"),
//	})
//	resp, err := t.Send(ctx, &transport.Request{Method: http.MethodGet, URL: "/pet/1"})
package transport
