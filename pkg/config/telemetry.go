package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/kartrace/kartrace-go/log"
)

const serviceName = "kartrace"

type Telemetry struct {
	ctx    context.Context
	metric *metric.MeterProvider
	tracer *trace.TracerProvider
}

func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()
	if err := errors.Join(t.metric.Shutdown(ctx), t.tracer.Shutdown(ctx)); err != nil {
		log.Warn("telemetry shutdown failed", log.ErrorField(err))
	}
}

// SetupTelemetry installs global meter and tracer providers. The endpoint
// "stdout" writes to the console instead of an otlp collector.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}
	var metricExporter metric.Exporter
	var traceExporter trace.SpanExporter
	if TelemetryEndpoint == "stdout" {
		if metricExporter, err = stdoutmetric.New(); err != nil {
			return nil, err
		}
		if traceExporter, err = stdouttrace.New(); err != nil {
			return nil, err
		}
	} else {
		metricExporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		traceExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(15*time.Second))))
	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(traceExporter))
	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)
	return &Telemetry{ctx: ctx, metric: mp, tracer: tp}, nil
}
