// Package telemetry records tool calls as OpenTelemetry metrics and spans and
// optionally exports both to an OTLP/HTTP collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"iacrules/internal/config"
)

const instrumentationName = "iacrules/mcp"

// ToolCall is one completed tool invocation.
type ToolCall struct {
	ToolName string
	Start    time.Time
	Duration time.Duration
	Success  bool
	Error    string
}

// ToolObserver records tool calls. A nil observer records nothing.
type ToolObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewToolObserver creates an observer bound to the provided meter and tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		"iacrules.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"iacrules.tool.latency",
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:      tracer,
		invocations: invocations,
		latency:     latency,
	}, nil
}

// NewGlobalToolObserver binds an observer to the global meter and tracer
// providers.
func NewGlobalToolObserver() (*ToolObserver, error) {
	return NewToolObserver(
		otel.GetMeterProvider().Meter(instrumentationName),
		otel.GetTracerProvider().Tracer(instrumentationName),
	)
}

// ObserveCall records one tool call.
func (o *ToolObserver) ObserveCall(ctx context.Context, call ToolCall) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", call.ToolName),
		attribute.Bool("success", call.Success),
	}
	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, call.Duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(ctx, "tool.call",
		trace.WithTimestamp(call.Start),
		trace.WithAttributes(attrs...),
	)
	if call.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, call.Error)
	}
	span.End(trace.WithTimestamp(call.Start.Add(call.Duration)))
}

// Setup installs global tracer and meter providers exporting to cfg.Endpoint
// when telemetry is enabled. The returned shutdown flushes pending spans and
// metrics; it is a no-op when telemetry is disabled.
func Setup(ctx context.Context, cfg config.TelemetryConfig, service, version string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	if cfg.Endpoint == "" {
		return noop, errors.New("telemetry endpoint is required when telemetry is enabled")
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("service.version", version),
	)

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return noop, fmt.Errorf("creating trace exporter: %w", err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return noop, fmt.Errorf("creating metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
