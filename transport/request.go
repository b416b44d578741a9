package transport

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Transport is the wire collaborator of a client session.
type Transport interface {
	// Send issues req and returns the raw response.
	Send(ctx context.Context, req *Request) (*Response, error)
	// Close releases pooled connections.
	Close(ctx context.Context) error
}

// Field is one ordered key/value pair of a query string or form.
type Field struct {
	Key   string
	Value string
}

// FileField is a file part of a multipart request.
type FileField struct {
	// FieldName is the form field name.
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader streams the content. Seekable readers are rewound before each send.
	Reader io.Reader
}

// Request is a fully bound outbound request.
type Request struct {
	// Method is the HTTP verb.
	Method string
	// URL is a path joined to the base URL, or an absolute URL.
	URL string
	// Query items in order. Repeated keys are kept.
	Query []Field
	// Headers override the session headers.
	Headers http.Header
	// Body is the encoded payload.
	Body []byte
	// ContentType of Body.
	ContentType string
	// Form holds multipart text fields. Only sent when Files is non-empty.
	Form []Field
	// Files makes the request multipart/form-data.
	Files []FileField
	// Timeout overrides the session timeout.
	Timeout time.Duration
}

// Multipart reports whether the request is sent as multipart/form-data.
func (r *Request) Multipart() bool { return len(r.Files) > 0 }

// Response is the raw result of a request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Body is the fully read response body.
	Body []byte
	// Duration is the time from send to body read.
	Duration time.Duration
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
