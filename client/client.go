package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/lima/binding"
	"github.com/kbukum/lima/component"
	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/retry"
	"github.com/kbukum/lima/transport"
)

// Client is a session against one REST API. Calls are issued through
// Call, Exec and Go. It is safe for concurrent use.
type Client struct {
	cfg    Config
	binder *binding.Binder
	log    *logger.Logger

	mu      sync.Mutex
	tr      transport.Transport
	started bool
	auth    transport.Auth
}

var (
	_ component.Component = (*Client)(nil)
	_ retry.Session       = (*Client)(nil)
)

// New creates a stopped session.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Client{
		cfg:    cfg,
		binder: binding.New(cfg.Codec, cfg.Headers),
		log:    log.WithComponent("lima.client").WithFields(logger.Fields("client", cfg.Name)),
		auth:   cfg.Transport.Auth,
	}, nil
}

// Name returns the session name.
func (c *Client) Name() string { return c.cfg.Name }

// Config returns a copy of the session configuration.
func (c *Client) Config() Config { return c.cfg }

// Start opens the transport. Starting a started session is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	opened, err := c.startLocked()
	c.mu.Unlock()
	if opened {
		c.emit(ctx, EventStartClient, Info{})
	}
	return err
}

func (c *Client) startLocked() (bool, error) {
	if c.started {
		return false, nil
	}
	tc := c.cfg.transportConfig()
	tc.Auth = c.auth
	tr, err := c.cfg.NewTransport(tc)
	if err != nil {
		return false, fmt.Errorf("client %s: open transport: %w", c.cfg.Name, err)
	}
	c.tr = tr
	c.started = true
	c.log.Debug("client started", logger.Fields("base_url", c.cfg.BaseURL))
	return true, nil
}

// Stop closes the transport. Stopping a stopped session is a no-op.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	err := c.tr.Close(ctx)
	c.tr = nil
	c.started = false
	c.mu.Unlock()

	c.log.Debug("client stopped")
	c.emit(ctx, EventStopClient, Info{})
	if err != nil {
		return fmt.Errorf("client %s: close transport: %w", c.cfg.Name, err)
	}
	return nil
}

// Started reports whether the transport is open.
func (c *Client) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// With starts the session, runs fn and stops the session.
func (c *Client) With(ctx context.Context, fn func(ctx context.Context, c *Client) error) (err error) {
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := c.Stop(ctx); err == nil {
			err = stopErr
		}
	}()
	return fn(ctx, c)
}

// Health reports whether the session is started.
func (c *Client) Health(_ context.Context) component.Health {
	if !c.Started() {
		return component.Health{Name: c.cfg.Name, Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: c.cfg.Name, Status: component.StatusHealthy}
}

// SetAuth replaces the session credential on the open transport and on
// transports opened later.
func (c *Client) SetAuth(a transport.Auth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = a
	if s, ok := c.tr.(interface{ SetAuth(transport.Auth) }); ok {
		s.SetAuth(a)
	}
}

// Login runs the configured login function and reports success.
func (c *Client) Login(ctx context.Context) bool {
	if c.cfg.Login == nil {
		return false
	}
	if err := c.cfg.Login(ctx, c); err != nil {
		c.log.Warn("login failed", logger.Fields(logger.FieldError, err.Error()))
		return false
	}
	c.log.Debug("login succeeded")
	return true
}

// acquire returns the transport for one call and the function releasing it.
func (c *Client) acquire(ctx context.Context) (transport.Transport, func(), error) {
	c.mu.Lock()
	opened := false
	if !c.started {
		if !c.cfg.AutoStart {
			c.mu.Unlock()
			return nil, nil, limaerrors.Session("client %s is not started", c.cfg.Name)
		}
		var err error
		if opened, err = c.startLocked(); err != nil {
			c.mu.Unlock()
			return nil, nil, limaerrors.Session("client %s: auto start failed", c.cfg.Name).WithCause(err)
		}
	}
	tr := c.tr
	c.mu.Unlock()

	if opened {
		c.emit(ctx, EventStartClient, Info{})
	}
	release := func() {}
	if c.cfg.AutoClose {
		release = func() {
			if err := c.Stop(context.WithoutCancel(ctx)); err != nil {
				c.log.Warn("auto close failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}
	return tr, release, nil
}
