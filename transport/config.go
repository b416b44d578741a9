package transport

import (
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/resilience"
)

const defaultTimeout = 15 * time.Second

// Config configures the HTTP transport.
type Config struct {
	// Name identifies the session in logs and spans.
	Name string `yaml:"name" mapstructure:"name"`
	// BaseURL is joined with every request path.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds one send including the body read.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// TLS configures the TLS client.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
	// MaxIdleConnsPerHost sizes the connection pool. Zero keeps the net/http default.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`

	// CircuitBreaker counts transport failures and 5xx responses. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	// RateLimiter paces requests. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	// Bulkhead caps requests in flight. Nil disables it.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`

	// Auth is the initial session credential.
	Auth Auth `yaml:"-" mapstructure:"-"`
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider `yaml:"-" mapstructure:"-"`
	// Propagator defaults to W3C trace context plus baggage.
	Propagator propagation.TextMapPropagator `yaml:"-" mapstructure:"-"`
	// Logger defaults to the global logger.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "lima"
	}
	if c.Propagator == nil {
		c.Propagator = propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("transport: timeout must be positive")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("transport: invalid base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("transport: base_url must be http or https, got %q", c.BaseURL)
		}
	}
	return c.TLS.Validate()
}
