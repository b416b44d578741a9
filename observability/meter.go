package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/lima/logger"
)

// MeterName is the instrumentation scope of lima metrics.
const MeterName = "github.com/kbukum/lima"

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by client sessions. A nil
// *Metrics records nothing.
type Metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	retries  metric.Int64Counter
}

// NewMetrics creates the lima instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	calls, err := meter.Int64Counter("lima.client.calls",
		metric.WithDescription("Completed endpoint calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lima.client.calls counter: %w", err)
	}
	duration, err := meter.Float64Histogram("lima.client.call.duration",
		metric.WithDescription("Duration of endpoint calls including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lima.client.call.duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("lima.client.calls.active",
		metric.WithDescription("Endpoint calls in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lima.client.calls.active counter: %w", err)
	}
	retries, err := meter.Int64Counter("lima.client.retries",
		metric.WithDescription("Retried dispatches by triggering status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lima.client.retries counter: %w", err)
	}
	return &Metrics{calls: calls, duration: duration, active: active, retries: retries}, nil
}

// CallStarted increments the in-flight count.
func (m *Metrics) CallStarted(ctx context.Context, session, endpoint string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session", session),
		attribute.String("endpoint", endpoint),
	))
}

// CallFinished records a completed call. outcome is "ok" or the error kind.
func (m *Metrics) CallFinished(ctx context.Context, session, endpoint, outcome string, status int, d time.Duration) {
	if m == nil {
		return
	}
	base := []attribute.KeyValue{
		attribute.String("session", session),
		attribute.String("endpoint", endpoint),
	}
	m.active.Add(ctx, -1, metric.WithAttributes(base...))
	m.calls.Add(ctx, 1, metric.WithAttributes(append(base,
		attribute.String("outcome", outcome),
		attribute.String("status", strconv.Itoa(status)),
	)...))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(base...))
}

// Retried records one retry.
func (m *Metrics) Retried(ctx context.Context, session, endpoint string, status int) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session", session),
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(status)),
	))
}
