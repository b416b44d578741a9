package client

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/kbukum/lima/config"
	"github.com/kbukum/lima/endpoint"
	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/model"
	"github.com/kbukum/lima/observability"
	"github.com/kbukum/lima/retry"
	"github.com/kbukum/lima/transport"
)

const defaultTimeout = 15 * time.Second

// LoginFunc refreshes the credentials of c, typically through c.SetAuth.
type LoginFunc func(ctx context.Context, c *Client) error

// TransportFactory opens the transport of a started session.
type TransportFactory func(cfg transport.Config) (transport.Transport, error)

// Config configures a client session.
type Config struct {
	// Name identifies the session in logs, spans and metrics.
	Name string `yaml:"name" mapstructure:"name"`
	// BaseURL is joined with every endpoint path.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Mode selects synchronous or asynchronous dispatch.
	Mode endpoint.Mode `yaml:"-" mapstructure:"-"`
	// Timeout bounds each request unless the endpoint overrides it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// DefaultStatus is the success status, or 0 for any 2xx.
	DefaultStatus int `yaml:"default_status" mapstructure:"default_status"`
	// AutoStart opens the transport on the first call.
	AutoStart bool `yaml:"auto_start" mapstructure:"auto_start"`
	// AutoClose closes the transport after every call. Concurrent calls
	// under AutoClose race on the transport.
	AutoClose bool `yaml:"auto_close" mapstructure:"auto_close"`

	// ResponseMapping maps status codes to errors. Endpoint entries win.
	ResponseMapping map[int]limaerrors.Factory `yaml:"-" mapstructure:"-"`
	// RetryMapping maps status codes to retry processors. Endpoint entries win.
	RetryMapping map[int]retry.Factory `yaml:"-" mapstructure:"-"`
	// DefaultError builds the error for unmapped failure statuses.
	DefaultError limaerrors.Factory `yaml:"-" mapstructure:"-"`

	// Hook observes session events. Its failures are logged and ignored.
	Hook Hook `yaml:"-" mapstructure:"-"`
	// Login refreshes credentials for the auto-login retry processor.
	Login LoginFunc `yaml:"-" mapstructure:"-"`
	// Codec encodes bodies and decodes responses. Defaults to model.JSON.
	Codec model.Codec `yaml:"-" mapstructure:"-"`
	// Transport configures the HTTP transport. Name, BaseURL, Timeout and
	// Headers are copied from the session.
	Transport transport.Config `yaml:"transport" mapstructure:"transport"`
	// NewTransport opens the transport. Defaults to transport.New.
	NewTransport TransportFactory `yaml:"-" mapstructure:"-"`
	// Logger defaults to the global logger.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`
	// Metrics records call metrics when set.
	Metrics *observability.Metrics `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "lima"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Codec == nil {
		c.Codec = model.JSON
	}
	if c.NewTransport == nil {
		c.NewTransport = func(cfg transport.Config) (transport.Transport, error) {
			return transport.New(cfg)
		}
	}
}

// ApplySettings copies library-wide settings into fields left unset.
func (c *Config) ApplySettings(s config.Settings) {
	if c.Timeout <= 0 {
		c.Timeout = s.DefaultTimeout
	}
	if c.DefaultStatus == 0 {
		c.DefaultStatus = s.DefaultResponseCode
	}
	c.AutoStart = c.AutoStart || s.AutoStart
	c.AutoClose = c.AutoClose || s.AutoClose
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("client: base_url is required")
	}
	if c.Mode != endpoint.ModeSync && c.Mode != endpoint.ModeAsync {
		return fmt.Errorf("client: unknown mode %d", c.Mode)
	}
	if c.DefaultStatus != 0 && (c.DefaultStatus < 100 || c.DefaultStatus > 599) {
		return fmt.Errorf("client: default_status must be 0 or a valid HTTP status (got: %d)", c.DefaultStatus)
	}
	tc := c.transportConfig()
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	return nil
}

// transportConfig merges session fields into the transport configuration.
func (c *Config) transportConfig() transport.Config {
	tc := c.Transport
	tc.Name = c.Name
	tc.BaseURL = c.BaseURL
	tc.Timeout = c.Timeout
	tc.Headers = maps.Clone(c.Headers)
	if tc.Logger == nil {
		tc.Logger = c.Logger
	}
	return tc
}
