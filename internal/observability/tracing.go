package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for local store operations
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartGatewaySpan starts a span for backend gateway calls
func StartGatewaySpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("Gateway.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.operation", operation),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SyncMetrics holds sync-pass metrics
type SyncMetrics struct {
	passCount    metric.Int64Counter
	passDuration metric.Float64Histogram
	itemsSynced  metric.Int64Counter
	itemErrors   metric.Int64Counter
}

// NewSyncMetrics creates sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	passCount, err := meter.Int64Counter(
		"sync.pass.count",
		metric.WithDescription("Total number of sync passes"),
		metric.WithUnit("{passes}"),
	)
	if err != nil {
		return nil, err
	}

	passDuration, err := meter.Float64Histogram(
		"sync.pass.duration",
		metric.WithDescription("Sync pass duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	itemsSynced, err := meter.Int64Counter(
		"sync.items.synced",
		metric.WithDescription("Items acknowledged by the backend"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return nil, err
	}

	itemErrors, err := meter.Int64Counter(
		"sync.items.errors",
		metric.WithDescription("Items rejected by the backend"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		passCount:    passCount,
		passDuration: passDuration,
		itemsSynced:  itemsSynced,
		itemErrors:   itemErrors,
	}, nil
}

// RecordPass records the outcome of one sync pass
func (m *SyncMetrics) RecordPass(ctx context.Context, durationMs float64, success bool) {
	if m == nil {
		return
	}
	m.passCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	m.passDuration.Record(ctx, durationMs)
}

// RecordItems records per-item acknowledgments and rejections of one stream
func (m *SyncMetrics) RecordItems(ctx context.Context, stream string, synced, errors int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stream", stream))
	m.itemsSynced.Add(ctx, synced, attrs)
	m.itemErrors.Add(ctx, errors, attrs)
}
