package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// CheckoutMetrics are the counters the orchestrator records. Persistence
// failures get their own counter because that is the paged-operator case:
// money moved but no durable record exists.
type CheckoutMetrics struct {
	orders              metric.Int64Counter
	registrations       metric.Int64Counter
	idempotentReplays   metric.Int64Counter
	persistenceFailures metric.Int64Counter
}

func NewCheckoutMetrics() (*CheckoutMetrics, error) {
	meter := otel.Meter("checkout")

	orders, err := meter.Int64Counter("checkout_orders_total",
		metric.WithDescription("Orders processed, by result"))
	if err != nil {
		return nil, err
	}

	registrations, err := meter.Int64Counter("checkout_domain_registrations_total",
		metric.WithDescription("Per-domain registrar outcomes, by status"))
	if err != nil {
		return nil, err
	}

	replays, err := meter.Int64Counter("checkout_idempotent_replays_total",
		metric.WithDescription("Duplicate charge callbacks answered from the existing order"))
	if err != nil {
		return nil, err
	}

	persistence, err := meter.Int64Counter("checkout_persistence_failures_total",
		metric.WithDescription("Order persistence failures after payment capture"))
	if err != nil {
		return nil, err
	}

	return &CheckoutMetrics{
		orders:              orders,
		registrations:       registrations,
		idempotentReplays:   replays,
		persistenceFailures: persistence,
	}, nil
}

func (m *CheckoutMetrics) RecordOrder(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *CheckoutMetrics) RecordRegistration(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *CheckoutMetrics) RecordIdempotentReplay(ctx context.Context) {
	if m == nil {
		return
	}
	m.idempotentReplays.Add(ctx, 1)
}

func (m *CheckoutMetrics) RecordPersistenceFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.persistenceFailures.Add(ctx, 1)
}
