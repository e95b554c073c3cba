// Package telemetry installs the OpenTelemetry tracer provider. Without an
// OTLP endpoint nothing is installed and spans go to the no-op provider.
package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var logger = logrus.WithField("component", "einvoice.telemetry")

type Config struct {
	ServiceName string
	Environment string
	// OTLPEndpoint host:port or URL of an OTLP/gRPC collector
	OTLPEndpoint string
}

// Init returns a shutdown function flushing pending spans; call it on exit.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	shutdown = func(context.Context) error { return nil }
	if cfg.OTLPEndpoint == "" {
		return shutdown, nil
	}

	opts := []otlptracegrpc.Option{}
	if strings.Contains(cfg.OTLPEndpoint, "://") {
		opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint))
	} else {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return shutdown, errors.Wrap(err, "create trace exporter")
	}

	res, err := newResource(cfg)
	if err != nil {
		return shutdown, err
	}

	tp := install(res, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	logger.WithField("endpoint", cfg.OTLPEndpoint).Info("tracing enabled")
	return tp.Shutdown, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, errors.Wrap(err, "create resource")
	}
	return res, nil
}

// install sets the global tracer provider and W3C propagation.
func install(res *resource.Resource, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}, opts...)

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp
}
