package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	metricapi "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
)

// Attribute is a key/value pair attached to spans and measurements.
type Attribute = attribute.KeyValue

// Int64Counter is re-exported so callers need not import the metric API.
type Int64Counter = metricapi.Int64Counter

// StringAttribute builds a string-valued Attribute.
func StringAttribute(key, value string) Attribute {
	return attribute.String(key, value)
}

// GetMeter returns a meter with the provided name.
func GetMeter(name string) metricapi.Meter {
	if name == "" {
		name = ScopeName
	}
	return otel.Meter(name)
}

// NewInt64Counter creates an int64 counter with an optional description.
func NewInt64Counter(meter metricapi.Meter, name, description string) (Int64Counter, error) {
	opts := []metricapi.Int64CounterOption{}
	if description != "" {
		opts = append(opts, metricapi.WithDescription(description))
	}
	return meter.Int64Counter(name, opts...)
}

// AddInt64Counter adds a value to an int64 counter with optional attributes.
func AddInt64Counter(ctx context.Context, counter Int64Counter, value int64, attrs ...Attribute) {
	counter.Add(ctx, value, metricapi.WithAttributes(attrs...))
}

func initMetrics(ctx context.Context, conn *grpc.ClientConn, res *resource.Resource) (func(context.Context) error, error) {
	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(3*time.Second)),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
