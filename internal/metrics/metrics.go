package metrics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/example/storefront/internal/config"
)

// AppMetrics holds all application instruments
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business
	OrdersCreated  metric.Int64Counter
	OrdersPaid     metric.Int64Counter
	RevenueTotal   metric.Float64Counter
	CartItemsAdded metric.Int64Counter

	serviceName string
}

// Shutdown flushes and stops the meter provider
type Shutdown func(context.Context) error

// InitMetrics builds an OTLP/HTTP exporting meter provider when metrics are
// enabled, and a no-op provider otherwise.
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, Shutdown, error) {
	if !cfg.MetricsEnabled {
		m, err := newAppMetrics(noop.NewMeterProvider().Meter(cfg.OTELServiceName), cfg.OTELServiceName)
		return m, func(context.Context) error { return nil }, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
	)
	otel.SetMeterProvider(meterProvider)
	log.Printf("[Metrics] Exporting to %s/v1/metrics every 10s", cfg.OTELExporterOTLPEndpoint)

	m, err := newAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return m, meterProvider.Shutdown, nil
}

// NewNoop returns instruments backed by a no-op provider
func NewNoop() *AppMetrics {
	m, _ := newAppMetrics(noop.NewMeterProvider().Meter("noop"), "noop")
	return m
}

func newAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 30000, 60000}
	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}
	if m.HTTPRequestsErrors, err = meter.Int64Counter("http.server.request.errors",
		metric.WithDescription("Total number of HTTP requests answered with 5xx"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...)); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.DBQueriesTotal, err = meter.Int64Counter("db.client.queries.count",
		metric.WithDescription("Total number of database queries"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create db queries counter: %w", err)
	}
	if m.DBQueryDuration, err = meter.Float64Histogram("db.client.queries.duration",
		metric.WithDescription("Database query duration in milliseconds"), metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...)); err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}
	if m.OrdersCreated, err = meter.Int64Counter("orders_created_total",
		metric.WithDescription("Total number of pending orders created at checkout"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}
	if m.OrdersPaid, err = meter.Int64Counter("orders_paid_total",
		metric.WithDescription("Total number of orders confirmed as paid"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create paid orders counter: %w", err)
	}
	if m.RevenueTotal, err = meter.Float64Counter("revenue_total",
		metric.WithDescription("Revenue from paid orders"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}
	if m.CartItemsAdded, err = meter.Int64Counter("cart_items_added_total",
		metric.WithDescription("Units added to carts"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create cart items counter: %w", err)
	}
	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordHTTPRequest records one served request
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	})...)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if status >= 500 {
		m.HTTPRequestsErrors.Add(ctx, 1, attrs)
	}
}

// RecordDBQuery records a store call
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("db.system", "postgresql"),
		attribute.String("status", status),
	})...)
	m.DBQueriesTotal.Add(ctx, 1, attrs)
	m.DBQueryDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

// RecordOrderCreated counts a pending order
func (m *AppMetrics) RecordOrderCreated(ctx context.Context, checkoutType string) {
	if m == nil {
		return
	}
	m.OrdersCreated.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("checkout_type", checkoutType),
	})...))
}

// RecordOrderPaid counts a paid order and its revenue
func (m *AppMetrics) RecordOrderPaid(ctx context.Context, total decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(m.WithServiceName(nil)...)
	m.OrdersPaid.Add(ctx, 1, attrs)
	m.RevenueTotal.Add(ctx, total.InexactFloat64(), attrs)
}

// RecordCartItemAdded counts units put into carts
func (m *AppMetrics) RecordCartItemAdded(ctx context.Context, productID string, quantity int) {
	if m == nil {
		return
	}
	m.CartItemsAdded.Add(ctx, int64(quantity), metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("product_id", productID),
	})...))
}
