// Package telemetry wires OpenTelemetry tracing and metrics behind
// core.Telemetry.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/sushichat/core"
)

const instrumentationName = "github.com/itsneelabh/sushichat"

// Provider implements core.Telemetry with OpenTelemetry. Metric names
// ending in _total become counters, names ending in _seconds become
// histograms and anything else a gauge.
type Provider struct {
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider
	logger        core.Logger

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewProvider builds a tracer provider for cfg.Exporter and installs it
// globally together with the W3C propagator.
func NewProvider(ctx context.Context, serviceName, version string, cfg core.TelemetryConfig, logger core.Logger) (*Provider, error) {
	var opts []sdktrace.TracerProviderOption

	switch cfg.Exporter {
	case "otlp":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("telemetry endpoint: %w", core.ErrMissingConfiguration)
		}
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://"))}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported telemetry exporter %q: %w", cfg.Exporter, core.ErrInvalidConfiguration)
	}

	rate := cfg.SamplingRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	opts = append(opts, sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))))

	p := newProvider(serviceName, version, logger, opts...)
	p.logger.Info("Telemetry enabled", map[string]interface{}{
		"exporter":      cfg.Exporter,
		"endpoint":      cfg.Endpoint,
		"sampling_rate": rate,
	})
	return p, nil
}

func newProvider(serviceName, version string, logger core.Logger, opts ...sdktrace.TracerProviderOption) *Provider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)
	tp := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &Provider{
		tracer:        tp.Tracer(instrumentationName),
		meter:         otel.Meter(instrumentationName),
		traceProvider: tp,
		logger:        core.ComponentLogger(logger, "telemetry"),
		counters:      make(map[string]metric.Float64Counter),
		histograms:    make(map[string]metric.Float64Histogram),
		gauges:        make(map[string]metric.Float64Gauge),
	}
}

// StartSpan starts a span named name.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric records value on the instrument named name, creating it on first use.
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	opt := metric.WithAttributes(attrs...)
	ctx := context.Background()

	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	switch {
	case strings.HasSuffix(name, "_total"):
		c, ok := p.counters[name]
		if !ok {
			if c, err = p.meter.Float64Counter(name); err == nil {
				p.counters[name] = c
			}
		}
		if err == nil {
			c.Add(ctx, value, opt)
		}
	case strings.HasSuffix(name, "_seconds"):
		h, ok := p.histograms[name]
		if !ok {
			if h, err = p.meter.Float64Histogram(name, metric.WithUnit("s")); err == nil {
				p.histograms[name] = h
			}
		}
		if err == nil {
			h.Record(ctx, value, opt)
		}
	default:
		g, ok := p.gauges[name]
		if !ok {
			if g, err = p.meter.Float64Gauge(name); err == nil {
				p.gauges[name] = g
			}
		}
		if err == nil {
			g.Record(ctx, value, opt)
		}
	}
	if err != nil {
		p.logger.Warn("Failed to create metric instrument", map[string]interface{}{
			"metric": name,
			"error":  err.Error(),
		})
	}
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.traceProvider.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}
