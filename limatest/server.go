package limatest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/kbukum/lima/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Request is one recorded request.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

// Server is a mock HTTP server. It implements component.Component.
type Server struct {
	engine *gin.Engine
	ts     *httptest.Server

	mu       sync.RWMutex
	started  bool
	requests []Request
	routes   map[string]*Expectation
}

var _ component.Component = (*Server)(nil)

// NewServer creates a stopped server.
func NewServer() *Server {
	s := &Server{routes: make(map[string]*Expectation)}
	s.engine = gin.New()
	s.engine.Use(s.record)
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no expectation for " + c.Request.Method + " " + c.Request.URL.Path})
	})
	return s
}

// Start creates a started server that is stopped when the test ends.
func Start(tb testing.TB) *Server {
	tb.Helper()
	s := NewServer()
	if err := s.Start(context.Background()); err != nil {
		tb.Fatalf("limatest: start: %v", err)
	}
	tb.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
		Query:    c.Request.URL.Query(),
		Header:   c.Request.Header.Clone(),
		Body:     body,
	})
	s.mu.Unlock()
	c.Next()
}

// Engine returns the gin engine for custom routes.
func (s *Server) Engine() *gin.Engine { return s.engine }

// URL returns the base URL, or "" if the server is not started.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ts == nil {
		return ""
	}
	return s.ts.URL
}

// On returns the expectation for a gin route pattern such as "/pet/:petId",
// registering it on first use.
func (s *Server) On(method, path string) *Expectation {
	key := method + " " + path
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.routes[key]; ok {
		return e
	}
	e := &Expectation{}
	s.routes[key] = e
	s.engine.Handle(method, path, e.serve)
	return e
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns the number of recorded requests.
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

// Last returns the most recent request.
func (s *Server) Last() (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Reset clears the request log.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// --- component.Component ---

func (s *Server) Name() string { return "limatest" }

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("limatest: server already started")
	}
	s.ts = httptest.NewServer(s.engine)
	s.started = true
	return nil
}

func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.ts.Close()
	s.started = false
	return nil
}

func (s *Server) Health(_ context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Reply is one canned response.
type Reply struct {
	Status  int
	Headers map[string]string
	Body    any
	Delay   time.Duration
}

// Expectation answers one route. Queued replies are served in order; the
// last one repeats.
type Expectation struct {
	mu      sync.Mutex
	replies []Reply
	hits    int
}

// Reply queues a response. Body may be nil, []byte, string, or a value
// encoded as JSON.
func (e *Expectation) Reply(status int, body any) *Expectation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies = append(e.replies, Reply{Status: status, Body: body})
	return e
}

// Header sets a header on the last queued reply.
func (e *Expectation) Header(key, value string) *Expectation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.replies) == 0 {
		e.replies = append(e.replies, Reply{Status: http.StatusOK})
	}
	r := &e.replies[len(e.replies)-1]
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return e
}

// Delay holds the last queued reply for d or until the client goes away.
func (e *Expectation) Delay(d time.Duration) *Expectation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.replies) == 0 {
		e.replies = append(e.replies, Reply{Status: http.StatusOK})
	}
	e.replies[len(e.replies)-1].Delay = d
	return e
}

// Hits returns how many requests the expectation served.
func (e *Expectation) Hits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits
}

func (e *Expectation) next() Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hits++
	if len(e.replies) == 0 {
		return Reply{Status: http.StatusOK}
	}
	r := e.replies[0]
	if len(e.replies) > 1 {
		e.replies = e.replies[1:]
	}
	return r
}

func (e *Expectation) serve(c *gin.Context) {
	r := e.next()
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-c.Request.Context().Done():
			return
		}
	}
	for k, v := range r.Headers {
		c.Header(k, v)
	}

	switch body := r.Body.(type) {
	case nil:
		c.Status(r.Status)
	case []byte:
		c.Data(r.Status, contentType(r, "application/octet-stream"), body)
	case string:
		c.Data(r.Status, contentType(r, "text/plain; charset=utf-8"), []byte(body))
	default:
		data, err := json.Marshal(body)
		if err != nil {
			c.String(http.StatusInternalServerError, "limatest: encode reply: %v", err)
			return
		}
		c.Data(r.Status, contentType(r, "application/json"), data)
	}
}

func contentType(r Reply, fallback string) string {
	for k, v := range r.Headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			return v
		}
	}
	return fallback
}
