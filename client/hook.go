package client

import (
	"context"
	"fmt"

	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/transport"
)

// Event tags a hook invocation.
type Event string

const (
	EventSendingRequest   Event = "sending_request"
	EventReceivedResponse Event = "received_response"
	EventRetry            Event = "retry"
	EventStartClient      Event = "start_client"
	EventStopClient       Event = "stop_client"
)

// Info is the context passed to a hook. Fields unrelated to the event are
// zero.
type Info struct {
	Client   string
	Endpoint string
	CallID   string
	Attempt  int
	Request  *transport.Request
	Response *transport.Response
	Err      error
}

// Hook observes session events. It has no influence on the call.
type Hook func(ctx context.Context, event Event, info Info) error

// LogHook returns a Hook that logs every event at debug level.
func LogHook(l *logger.Logger) Hook {
	return func(_ context.Context, event Event, info Info) error {
		fields := logger.Fields(
			logger.FieldEvent, string(event),
			"client", info.Client,
		)
		if info.Endpoint != "" {
			fields[logger.FieldEndpoint] = info.Endpoint
			fields[logger.FieldCallID] = info.CallID
			fields[logger.FieldAttempt] = info.Attempt
		}
		if info.Request != nil {
			fields[logger.FieldMethod] = info.Request.Method
			fields[logger.FieldURL] = info.Request.URL
		}
		if info.Response != nil {
			fields[logger.FieldStatus] = info.Response.StatusCode
			fields = logger.MergeWithDuration(fields, info.Response.Duration)
		}
		if info.Err != nil {
			fields = logger.MergeWithError(fields, info.Err)
		}
		l.Debug(string(event), fields)
		return nil
	}
}

// emit runs the hook, logging and swallowing any failure.
func (c *Client) emit(ctx context.Context, event Event, info Info) {
	hook := c.cfg.Hook
	if hook == nil {
		return
	}
	info.Client = c.cfg.Name
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("hook panicked", logger.Fields(
				logger.FieldEvent, string(event),
				logger.FieldError, fmt.Sprint(r),
			))
		}
	}()
	if err := hook(ctx, event, info); err != nil {
		c.log.Warn("hook failed", logger.MergeWithError(logger.Fields(logger.FieldEvent, string(event)), err))
	}
}
