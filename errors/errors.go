package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
)

// Request describes the outbound request that produced an error.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
}

// Response is the raw response attached to a status error.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Factory builds the error returned to the caller for a mapped status code.
type Factory func(*CallError) error

// CallError is the concrete error carried by every failed call.
type CallError struct {
	// Kind classifies the failure.
	Kind Kind
	// Detail is a human-readable description.
	Detail string
	// StatusCode is the HTTP status, or StatusTransportFailure.
	StatusCode int
	// Class is set by Class factories.
	Class *Class
	// Request is the originating request, when one was built.
	Request *Request
	// Response is the raw response, when one was received.
	Response *Response
	// Details contains additional context for logging.
	Details map[string]any
	// Cause is the underlying error.
	Cause error

	decode  func([]byte, any) error
	once    sync.Once
	content any
	decErr  error
}

// Error returns the string representation of the error.
func (e *CallError) Error() string {
	prefix := "lima: " + e.Kind.String()
	if e.Class != nil {
		prefix += " " + e.Class.name
	}
	if e.Kind == KindStatus {
		prefix = fmt.Sprintf("%s (HTTP %d)", prefix, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Detail)
}

// Unwrap returns the underlying cause of the error.
func (e *CallError) Unwrap() error { return e.Cause }

// Is matches the error against a *Class sentinel.
func (e *CallError) Is(target error) bool {
	c, ok := target.(*Class)
	return ok && e.Class == c
}

// HTTPStatus returns the status code carried by the error.
func (e *CallError) HTTPStatus() int { return e.StatusCode }

// Content returns the raw response body, or nil.
func (e *CallError) Content() []byte {
	if e.Response == nil {
		return nil
	}
	return e.Response.Body
}

// Decode decodes the raw response body into v.
func (e *CallError) Decode(v any) error {
	body := e.Content()
	if len(body) == 0 {
		return fmt.Errorf("lima: no response content")
	}
	return e.decoder()(body, v)
}

// JSON decodes the response body on first use and caches the result.
func (e *CallError) JSON() (any, error) {
	e.once.Do(func() {
		var v any
		e.decErr = e.Decode(&v)
		e.content = v
	})
	return e.content, e.decErr
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *CallError) WithCause(cause error) *CallError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *CallError) WithDetail(key string, value any) *CallError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithRequest attaches the originating request and returns the receiver.
func (e *CallError) WithRequest(r *Request) *CallError {
	e.Request = r
	return e
}

// WithDecoder sets the function used by Decode and JSON.
func (e *CallError) WithDecoder(fn func([]byte, any) error) *CallError {
	e.decode = fn
	return e
}

func (e *CallError) decoder() func([]byte, any) error {
	if e.decode != nil {
		return e.decode
	}
	return DefaultDecode
}

// DefaultDecode is the JSON decoder used when no decoder was attached.
func DefaultDecode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// limaBase is promoted through embedding so Base can find the *CallError
// inside caller-defined wrapper types.
func (e *CallError) limaBase() *CallError { return e }

type baser interface{ limaBase() *CallError }

// Base returns the *CallError at the root of err, looking through wrappers that
// embed *CallError as well as fmt.Errorf %w chains.
func Base(err error) (*CallError, bool) {
	var b baser
	if stderrors.As(err, &b) {
		return b.limaBase(), true
	}
	return nil, false
}

// --- Constructors ---

// Binding creates a binding error.
func Binding(format string, args ...any) *CallError {
	return &CallError{Kind: KindBinding, Detail: fmt.Sprintf(format, args...)}
}

// Transport creates a transport error wrapping cause.
func Transport(cause error) *CallError {
	return &CallError{
		Kind:       KindTransport,
		Detail:     "transport failure",
		StatusCode: StatusTransportFailure,
		Cause:      cause,
	}
}

// Status creates a status error from a raw response.
func Status(detail string, resp *Response) *CallError {
	e := &CallError{Kind: KindStatus, Detail: detail, Response: resp}
	if resp != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}

// Validation creates a validation error wrapping cause.
func Validation(detail string, cause error) *CallError {
	return &CallError{Kind: KindValidation, Detail: detail, Cause: cause}
}

// Session creates a session-usage error.
func Session(format string, args ...any) *CallError {
	return &CallError{Kind: KindSession, Detail: fmt.Sprintf(format, args...)}
}

// --- Predicates ---

func kindOf(err error) (Kind, bool) {
	if b, ok := Base(err); ok {
		return b.Kind, true
	}
	return 0, false
}

// IsBinding checks if err is a binding error.
func IsBinding(err error) bool { k, ok := kindOf(err); return ok && k == KindBinding }

// IsTransport checks if err is a transport error.
func IsTransport(err error) bool { k, ok := kindOf(err); return ok && k == KindTransport }

// IsStatus checks if err is a status-mapped error.
func IsStatus(err error) bool { k, ok := kindOf(err); return ok && k == KindStatus }

// IsValidation checks if err is a validation error.
func IsValidation(err error) bool { k, ok := kindOf(err); return ok && k == KindValidation }

// IsSession checks if err is a session-usage error.
func IsSession(err error) bool { k, ok := kindOf(err); return ok && k == KindSession }

// StatusOf returns the status code carried by a status or transport error.
func StatusOf(err error) (int, bool) {
	b, ok := Base(err)
	if !ok || !b.Kind.Retryable() {
		return 0, false
	}
	return b.StatusCode, true
}
