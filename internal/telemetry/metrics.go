package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/blackwatch"
)

// Metrics holds the client side instruments.
type Metrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	SessionCleared  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it against
// the global meter provider on first use.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider())
	})
	return metrics
}

// NewMetrics registers the instruments with provider.
func NewMetrics(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter(meterName)

	m := &Metrics{}

	m.RequestsTotal, _ = meter.Int64Counter(
		"blackwatch.client.requests.total",
		metric.WithDescription("Total number of API requests by outcome"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"blackwatch.client.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("ms"),
	)

	m.SessionCleared, _ = meter.Int64Counter(
		"blackwatch.client.session.cleared.total",
		metric.WithDescription("Total number of sessions cleared after the server rejected the token"),
		metric.WithUnit("{session}"),
	)

	return m
}

// RecordRequest records one completed API call.
func (m *Metrics) RecordRequest(ctx context.Context, method, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	m.RequestsTotal.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
