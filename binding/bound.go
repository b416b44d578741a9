package binding

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/lima/transport"
)

// Args are the call arguments keyed by declared parameter name.
type Args map[string]any

// Bound is the request produced by binding one call.
type Bound struct {
	// Method is the HTTP verb.
	Method string
	// Path is the resolved path.
	Path string
	// Query items in order, repeated keys allowed.
	Query []transport.Field
	// Headers are the endpoint headers plus header parameters.
	Headers http.Header
	// Body is the encoded payload, or nil.
	Body []byte
	// ContentType of Body.
	ContentType string
	// Form carries body fields when the request is multipart.
	Form []transport.Field
	// Files are the file payloads.
	Files []transport.FileField
	// Timeout is the endpoint timeout override.
	Timeout time.Duration
}

// Request converts the bound call to a transport request.
func (b *Bound) Request() *transport.Request {
	return &transport.Request{
		Method:      b.Method,
		URL:         b.Path,
		Query:       slices.Clone(b.Query),
		Headers:     b.Headers.Clone(),
		Body:        b.Body,
		ContentType: b.ContentType,
		Form:        slices.Clone(b.Form),
		Files:       slices.Clone(b.Files),
		Timeout:     b.Timeout,
	}
}
