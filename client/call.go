package client

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/kbukum/lima/binding"
	"github.com/kbukum/lima/endpoint"
	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/model"
	"github.com/kbukum/lima/transport"
)

// Call invokes a synchronous endpoint and decodes the response into T.
func Call[T any](ctx context.Context, c *Client, d *endpoint.Descriptor, args binding.Args) (T, error) {
	var zero T
	if err := c.checkMode(d, endpoint.ModeSync); err != nil {
		return zero, err
	}
	resp, err := c.do(ctx, d, args)
	if err != nil {
		return zero, err
	}
	return decode[T](c, d, resp)
}

// Exec invokes a synchronous endpoint and discards the response body.
func Exec(ctx context.Context, c *Client, d *endpoint.Descriptor, args binding.Args) error {
	if err := c.checkMode(d, endpoint.ModeSync); err != nil {
		return err
	}
	_, err := c.do(ctx, d, args)
	return err
}

// Future is the pending result of an asynchronous call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go invokes an asynchronous endpoint. Cancelling ctx cancels the call at
// dispatch, body read or retry wait.
func Go[T any](ctx context.Context, c *Client, d *endpoint.Descriptor, args binding.Args) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	if err := c.checkMode(d, endpoint.ModeAsync); err != nil {
		f.err = err
		close(f.done)
		return f
	}
	go func() {
		defer close(f.done)
		resp, err := c.do(ctx, d, args)
		if err != nil {
			f.err = err
			return
		}
		f.value, f.err = decode[T](c, d, resp)
	}()
	return f
}

// Done is closed when the call completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await waits for the result. A done ctx stops the wait, not the call.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

var (
	bytesType   = reflect.TypeFor[[]byte]()
	rawJSONType = reflect.TypeFor[json.RawMessage]()
)

// decode turns a successful response into T.
func decode[T any](c *Client, d *endpoint.Descriptor, resp *transport.Response) (T, error) {
	var zero T
	if d.SkipsContent() {
		return zero, nil
	}
	target := reflect.TypeFor[T]()
	if declared := d.Returns(); declared != nil && !compatible(declared, target) {
		return zero, limaerrors.Binding("%s: declared return type %s, decoding into %s", d.Name(), declared, target)
	}

	switch target {
	case bytesType:
		return any(resp.Body).(T), nil
	case rawJSONType:
		return any(json.RawMessage(resp.Body)).(T), nil
	}

	empty := len(bytes.TrimSpace(resp.Body)) == 0
	if target.Kind() == reflect.Interface {
		if empty {
			return zero, nil
		}
		var v any
		if err := c.cfg.Codec.Unmarshal(resp.Body, &v); err != nil {
			v = resp.Body
		}
		if v == nil {
			return zero, nil
		}
		if out, ok := v.(T); ok {
			return out, nil
		}
		return zero, c.validationError(d, resp, "response does not satisfy the return type", nil)
	}
	if empty {
		if target.Kind() == reflect.Pointer {
			return zero, nil
		}
		return zero, c.validationError(d, resp, "empty response body", nil)
	}

	var out T
	if err := c.cfg.Codec.Unmarshal(resp.Body, &out); err != nil {
		return zero, c.validationError(d, resp, "decoding response body", err)
	}
	if err := model.Validate(out); err != nil {
		return zero, c.validationError(d, resp, "validating response body", err)
	}
	return out, nil
}

// compatible reports whether a response declared as declared can be decoded
// into target.
func compatible(declared, target reflect.Type) bool {
	switch {
	case declared == target, target.Kind() == reflect.Interface:
		return true
	case target.Kind() == reflect.Pointer && target.Elem() == declared:
		return true
	case declared.Kind() == reflect.Pointer && declared.Elem() == target:
		return true
	}
	return false
}

func (c *Client) validationError(d *endpoint.Descriptor, resp *transport.Response, detail string, cause error) error {
	e := limaerrors.Validation(d.Name()+": "+detail, cause)
	e.StatusCode = resp.StatusCode
	e.Response = &limaerrors.Response{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}
	return e.WithDecoder(c.cfg.Codec.Unmarshal)
}
