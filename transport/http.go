package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/resilience"
	"github.com/kbukum/lima/version"
)

const tracerName = "github.com/kbukum/lima/transport"

// errServerStatus marks 5xx responses as failures for the circuit breaker.
var errServerStatus = errors.New("server error status")

// HTTP is the net/http Transport. It is safe for concurrent use.
type HTTP struct {
	client     *http.Client
	config     Config
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	log        *logger.Logger
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	bh         *resilience.Bulkhead
	userAgent  string

	mu   sync.RWMutex
	auth Auth
}

// New creates an HTTP transport with its own connection pool.
func New(cfg Config) (*HTTP, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConnsPerHost > 0 {
		pool.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		pool.TLSClientConfig = tlsCfg
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	t := &HTTP{
		client:     &http.Client{Transport: pool},
		config:     cfg,
		tracer:     tp.Tracer(tracerName),
		propagator: cfg.Propagator,
		log:        log.WithComponent("lima.transport"),
		auth:       cfg.Auth,
		userAgent:  version.UserAgent(),
	}
	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		cbCfg.IsFailure = func(err error) bool {
			return errors.Is(err, errServerStatus) || limaerrors.IsTransport(err)
		}
		t.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	if cfg.RateLimiter != nil {
		t.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
		t.log.Debug("rate limiter enabled", logger.Fields(
			"limiter", t.rl.Name(),
			"rate", t.rl.Rate(),
			"burst", t.rl.Burst(),
		))
	}
	if cfg.Bulkhead != nil {
		t.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return t, nil
}

// SetAuth replaces the session credential.
func (t *HTTP) SetAuth(a Auth) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.auth = a
}

func (t *HTTP) currentAuth() Auth {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.auth
}

// Send issues req. Responses of any status are returned without error.
func (t *HTTP) Send(ctx context.Context, req *Request) (*Response, error) {
	if t.rl != nil {
		if err := t.rl.Wait(ctx); err != nil {
			return nil, limaerrors.Transport(fmt.Errorf("rate limiter %s: %w", t.rl.Name(), err))
		}
	}

	var resp *Response
	send := func() error {
		var err error
		resp, err = t.sendOnce(ctx, req)
		if err == nil && resp.StatusCode >= 500 {
			return errServerStatus
		}
		return err
	}
	guarded := send
	if t.cb != nil {
		guarded = func() error { return t.cb.Execute(send) }
	}

	var err error
	if t.bh != nil {
		err = t.bh.Execute(ctx, guarded)
	} else {
		err = guarded()
	}

	switch {
	case errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrBulkheadFull):
		return nil, limaerrors.Transport(err)
	case err != nil:
		if _, ok := limaerrors.Base(err); ok {
			return nil, err
		}
		return nil, limaerrors.Transport(err)
	}
	return resp, nil
}

func (t *HTTP) sendOnce(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := t.tracer.Start(ctx, "HTTP "+req.Method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	httpReq, err := t.build(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", httpReq.URL.String()),
		attribute.String("lima.session", t.config.Name),
	)
	t.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, limaerrors.Transport(err).WithDetail("timeout", timeout.String())
		}
		return nil, limaerrors.Transport(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, limaerrors.Transport(fmt.Errorf("read response body: %w", err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))
	if httpResp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(httpResp.StatusCode))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}
	t.log.WithContext(ctx).Debug("response received", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldURL, httpReq.URL.String(),
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDuration, resp.Duration.Milliseconds(),
	))
	return resp, nil
}

// build constructs the *http.Request. Header precedence: User-Agent, session headers,
// then request headers, then credentials.
func (t *HTTP) build(ctx context.Context, req *Request) (*http.Request, error) {
	target, err := t.resolveURL(req.URL)
	if err != nil {
		return nil, limaerrors.Binding("invalid url %q: %v", req.URL, err)
	}
	target.RawQuery = encodeQuery(target.RawQuery, req.Query)

	body, contentType := req.Body, req.ContentType
	if req.Multipart() {
		body, contentType, err = encodeMultipart(req.Form, req.Files)
		if err != nil {
			return nil, limaerrors.Validation("encode multipart body", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), reader)
	if err != nil {
		return nil, limaerrors.Binding("create request: %v", err)
	}

	httpReq.Header.Set("User-Agent", t.userAgent)
	for k, v := range t.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Headers {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && (req.Multipart() || httpReq.Header.Get("Content-Type") == "") {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if a := t.currentAuth(); a != nil {
		a.Apply(httpReq)
	}
	return httpReq, nil
}

func (t *HTTP) resolveURL(raw string) (*url.URL, error) {
	if t.config.BaseURL == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return url.Parse(raw)
	}
	return url.Parse(strings.TrimRight(t.config.BaseURL, "/") + "/" + strings.TrimLeft(raw, "/"))
}

// encodeQuery appends items to an existing raw query, keeping their order.
func encodeQuery(existing string, items []Field) string {
	if len(items) == 0 {
		return existing
	}
	var sb strings.Builder
	sb.WriteString(existing)
	for _, f := range items {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	return sb.String()
}

// CircuitState returns the breaker state, or StateClosed without a breaker.
func (t *HTTP) CircuitState() resilience.State {
	if t.cb == nil {
		return resilience.StateClosed
	}
	return t.cb.State()
}

// Close releases idle pooled connections.
func (t *HTTP) Close(context.Context) error {
	t.client.CloseIdleConnections()
	return nil
}
