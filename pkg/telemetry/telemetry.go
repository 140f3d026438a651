// Package telemetry wires OpenTelemetry traces, metrics and logs to an OTLP
// collector over gRPC and bridges slog into the OTel log pipeline.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ScopeName is the instrumentation scope used when callers pass no name.
const ScopeName = "db-bootstrap"

// Init initializes tracer, meter and logger providers with OTLP gRPC exporters.
// It reads OTEL_EXPORTER_OTLP_ENDPOINT from the environment; when unset,
// telemetry is disabled and the returned shutdown is a no-op.
// OTEL_SERVICE_NAME overrides serviceName.
func Init(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		slog.Warn("OTEL_EXPORTER_OTLP_ENDPOINT not set, telemetry disabled")
		return noop, nil
	}

	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		serviceName = name
	}
	if serviceName == "" {
		serviceName = "unknown-service"
	}

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(serviceName),
	)

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		errs = append(errs, conn.Close())
		return errors.Join(errs...)
	}

	for _, setup := range []func(context.Context, *grpc.ClientConn, *resource.Resource) (func(context.Context) error, error){
		initTraces,
		initMetrics,
		initLogs,
	} {
		fn, err := setup(ctx, conn, res)
		if err != nil {
			return noop, errors.Join(err, shutdown(ctx))
		}
		shutdowns = append(shutdowns, fn)
	}

	slog.Info("otel_enabled", "endpoint", endpoint, "service", serviceName)

	return shutdown, nil
}
