package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/version"
)

const stdoutEndpoint = "stdout"

type Telemetry struct {
	ctx       context.Context
	tracer    *trace.TracerProvider
	metrics   *metric.MeterProvider
	shutdowns []func(context.Context) error
}

// SetupTelemetry installs global tracer and meter providers.
// The exporters send to TelemetryEndpoint via OTLP/gRPC.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", "fpe"),
			attribute.String("service.version", version.Version),
		))
	if err != nil {
		return nil, err
	}
	ret := &Telemetry{ctx: ctx}

	if ret.tracer, err = newTraceProvider(ctx, res); err != nil {
		return nil, err
	}
	ret.shutdowns = append(ret.shutdowns, ret.tracer.Shutdown)
	otel.SetTracerProvider(ret.tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	if ret.metrics, err = newMeterProvider(ctx, res); err != nil {
		ret.Shutdown()
		return nil, err
	}
	ret.shutdowns = append(ret.shutdowns, ret.metrics.Shutdown)
	otel.SetMeterProvider(ret.metrics)
	return ret, nil
}

func (t *Telemetry) Shutdown() {
	var err error
	for _, f := range t.shutdowns {
		err = errors.Join(err, f(t.ctx))
	}
	if err != nil {
		log.Warn("telemetry shutdown", log.ErrorField(err))
	}
}

func newTraceProvider(ctx context.Context, res *resource.Resource) (
	*trace.TracerProvider, error,
) {
	var exporter trace.SpanExporter
	var err error
	if TelemetryEndpoint == stdoutEndpoint {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure())
	}
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter, trace.WithBatchTimeout(5*time.Second)),
		trace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (
	*metric.MeterProvider, error,
) {
	var exporter metric.Exporter
	var err error
	if TelemetryEndpoint == stdoutEndpoint {
		exporter, err = stdoutmetric.New()
	} else {
		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
	}
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(15*time.Second))),
	), nil
}
