// Package limatest provides a gin-backed HTTP server for testing lima
// clients. It records every request and answers from registered
// expectations.
//
//	srv := limatest.Start(t)
//	srv.On(http.MethodGet, "/pet/:petId").Reply(http.StatusNotFound, map[string]string{"detail": "not found"})
//	cfg := client.Config{BaseURL: srv.URL()}
package limatest
