package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/pvpauth/component"
	"github.com/kbukum/pvpauth/logger"
)

// Component owns the tracer and meter providers for the process lifetime.
type Component struct {
	cfg         Config
	service     string
	version     string
	environment string
	log         *logger.Logger

	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates the observability component for a service.
func NewComponent(cfg Config, service, version, environment string, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Nop()
	}
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		service:     service,
		version:     version,
		environment: environment,
		log:         log.WithComponent("observability"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Metrics returns the service instruments. They record into the global
// meter provider, a no-op one when export is disabled.
func (c *Component) Metrics() *Metrics { return c.metrics }

// Start installs the exporters when enabled and creates the instruments.
func (c *Component) Start(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if c.cfg.Enabled {
		if err := c.startExport(ctx); err != nil {
			return fmt.Errorf("observability start: %w", err)
		}
	}

	metrics, err := NewMetrics(otel.Meter(tracerName))
	if err != nil {
		return fmt.Errorf("observability start: %w", err)
	}
	c.metrics = metrics
	return nil
}

func (c *Component) startExport(ctx context.Context) error {
	res, err := newResource(c.service, c.version, c.environment)
	if err != nil {
		return fmt.Errorf("creating resource: %w", err)
	}
	tp, err := initTracer(ctx, c.cfg, res)
	if err != nil {
		return err
	}
	c.tp = tp
	if c.cfg.MetricsInterval > 0 {
		mp, err := initMeter(ctx, c.cfg, res)
		if err != nil {
			_ = tp.Shutdown(ctx)
			c.tp = nil
			return err
		}
		c.mp = mp
	}
	c.log.Info("Telemetry export enabled", logger.Fields(
		"endpoint", c.cfg.Endpoint,
		"sample_rate", c.cfg.SampleRate,
		"metrics_interval", c.cfg.MetricsInterval.String(),
	))
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	return errors.Join(errs...)
}

// Health is always healthy: export failures never block requests.
func (c *Component) Health(_ context.Context) component.Health {
	msg := "export disabled"
	if c.tp != nil {
		msg = "exporting to " + c.cfg.Endpoint
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: msg}
}

// Describe returns infrastructure summary info for the startup log.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp %s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "OpenTelemetry", Type: "observability", Details: details}
}
