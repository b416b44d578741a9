package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/lima/binding"
	"github.com/kbukum/lima/endpoint"
	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/retry"
	"github.com/kbukum/lima/transport"
)

// checkMode rejects calls whose dispatch style does not match the session
// or the endpoint.
func (c *Client) checkMode(d *endpoint.Descriptor, want endpoint.Mode) error {
	if c.cfg.Mode != want {
		return limaerrors.Session("%s: %s call on a %s client", d.Name(), want, c.cfg.Mode)
	}
	if d.Mode() != want {
		return limaerrors.Session("%s: %s endpoint invoked as a %s call", d.Name(), d.Mode(), want)
	}
	return nil
}

// do binds, sends and resolves one logical call, retrying as the retry
// mappings allow. It returns the successful response.
func (c *Client) do(ctx context.Context, d *endpoint.Descriptor, args binding.Args) (resp *transport.Response, err error) {
	// Binding errors are reported before the session is touched.
	if _, err := c.binder.Bind(d, args); err != nil {
		return nil, err
	}

	tr, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	callID := uuid.NewString()
	log := c.log.WithContext(ctx).WithFields(logger.Fields(
		logger.FieldEndpoint, d.Name(),
		logger.FieldCallID, callID,
	))
	start := time.Now()
	c.cfg.Metrics.CallStarted(ctx, c.cfg.Name, d.Name())
	defer func() {
		outcome, status := "ok", 0
		if resp != nil {
			status = resp.StatusCode
		}
		if err != nil {
			outcome = "error"
			if base, ok := limaerrors.Base(err); ok {
				outcome = base.Kind.String()
				status = base.StatusCode
			}
		}
		c.cfg.Metrics.CallFinished(ctx, c.cfg.Name, d.Name(), outcome, status, time.Since(start))
	}()

	rc := &retry.Context{
		Attempt: 1,
		Async:   c.cfg.Mode == endpoint.ModeAsync,
		Session: c,
		CallID:  callID,
	}
	machine := retry.NewMachine(c.retryLookup(d), rc)

	for {
		resp, err = c.attempt(ctx, tr, d, args, rc)
		if err == nil {
			log.Debug("call succeeded", logger.MergeWithDuration(logger.Fields(
				logger.FieldStatus, resp.StatusCode,
				logger.FieldAttempt, rc.Attempt,
			), time.Since(start)))
			return resp, nil
		}
		if !machine.Evaluate(ctx, err) {
			log.Debug("call failed", logger.MergeWithError(logger.Fields(
				logger.FieldAttempt, rc.Attempt,
				"retry_state", machine.State().String(),
			), err))
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		log.Info("retrying call", logger.MergeWithError(logger.Fields(
			logger.FieldStatus, rc.Status(),
			logger.FieldAttempt, rc.Attempt,
		), err))
		c.cfg.Metrics.Retried(ctx, c.cfg.Name, d.Name(), rc.Status())
		c.emit(ctx, EventRetry, Info{Endpoint: d.Name(), CallID: callID, Attempt: rc.Attempt, Err: err})
	}
}

// attempt issues one dispatch. The request is bound again so every retry
// sends a freshly built request.
func (c *Client) attempt(ctx context.Context, tr transport.Transport, d *endpoint.Descriptor, args binding.Args, rc *retry.Context) (*transport.Response, error) {
	bound, err := c.binder.Bind(d, args)
	if err != nil {
		return nil, err
	}
	req := bound.Request()
	reqInfo := &limaerrors.Request{Method: req.Method, URL: req.URL, Headers: req.Headers.Clone()}
	info := Info{Endpoint: d.Name(), CallID: rc.CallID, Attempt: rc.Attempt, Request: req}

	c.emit(ctx, EventSendingRequest, info)
	resp, err := tr.Send(ctx, req)
	if err != nil {
		if base, ok := limaerrors.Base(err); ok {
			if base.Request == nil {
				base.WithRequest(reqInfo)
			}
			return nil, err
		}
		return nil, limaerrors.Transport(err).WithRequest(reqInfo)
	}
	info.Response = resp
	c.emit(ctx, EventReceivedResponse, info)

	return resp, c.resolve(d, reqInfo, resp)
}

// resolve decides whether resp is a success. The default status, or any 2xx
// when none is set, always succeeds. Failures become the mapped error, the
// default error, or the base status error, in that order.
func (c *Client) resolve(d *endpoint.Descriptor, req *limaerrors.Request, resp *transport.Response) error {
	status := resp.StatusCode
	def := d.DefaultStatus()
	if def == 0 {
		def = c.cfg.DefaultStatus
	}
	if def != 0 && status == def {
		return nil
	}
	if def == 0 && resp.IsSuccess() {
		return nil
	}

	if f, ok := c.responseFactory(d, status); ok && f != nil {
		return build(f, c.statusError("status code in response mapping", req, resp))
	}

	base := c.statusError("status code not in response mapping", req, resp)
	f := d.DefaultError()
	if f == nil {
		f = c.cfg.DefaultError
	}
	if f == nil {
		return base
	}
	return build(f, base)
}

func (c *Client) statusError(detail string, req *limaerrors.Request, resp *transport.Response) *limaerrors.CallError {
	return limaerrors.Status(detail, &limaerrors.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}).WithRequest(req).WithDecoder(c.cfg.Codec.Unmarshal)
}

// build applies a user factory, falling back to base if it returns nil.
func build(f limaerrors.Factory, base *limaerrors.CallError) error {
	if err := f(base); err != nil {
		return err
	}
	return base
}

func (c *Client) responseFactory(d *endpoint.Descriptor, status int) (limaerrors.Factory, bool) {
	if f, ok := d.ResponseFactory(status); ok {
		return f, true
	}
	f, ok := c.cfg.ResponseMapping[status]
	return f, ok
}

func (c *Client) retryLookup(d *endpoint.Descriptor) retry.Lookup {
	return func(status int) (retry.Factory, bool) {
		if f, ok := d.RetryFactory(status); ok {
			return f, true
		}
		f, ok := c.cfg.RetryMapping[status]
		return f, ok
	}
}
