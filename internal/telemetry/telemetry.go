// Package telemetry holds the OpenTelemetry tracer and instruments used by the
// graph packages. Without an SDK registered globally, everything is a no-op.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "tether"

var (
	rewireLatency  metric.Float64Histogram
	rewireEdges    metric.Int64Counter
	resolveTotal   metric.Int64Counter
	traversalNodes metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// Tracer returns the tracer for tether spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span named name with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		var err error

		rewireLatency, err = meter.Float64Histogram(
			"tether_rewire_duration_seconds",
			metric.WithDescription("Duration of isolation group rewires"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rewireEdges, err = meter.Int64Counter(
			"tether_rewire_edges_total",
			metric.WithDescription("Edges changed by isolation rewires, by action"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolveTotal, err = meter.Int64Counter(
			"tether_env_resolve_total",
			metric.WithDescription("Environment hostname resolutions, by result"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		traversalNodes, err = meter.Int64Histogram(
			"tether_traversal_nodes",
			metric.WithDescription("Nodes reached per recursive dependency read"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

// RecordRewire records one isolation group rewire.
func RecordRewire(ctx context.Context, d time.Duration, members int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	rewireLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Int("members", members),
	))
}

// RecordRewireEdge counts an edge change made by a rewire ("redirected",
// "canonicalized" or "dropped").
func RecordRewireEdge(ctx context.Context, action string) {
	if err := initMetrics(); err != nil {
		return
	}
	rewireEdges.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordResolve counts a hostname resolution outcome ("resolved",
// "unresolved", "cache_hit").
func RecordResolve(ctx context.Context, result string) {
	if err := initMetrics(); err != nil {
		return
	}
	resolveTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordTraversal records the number of nodes a recursive read reached.
func RecordTraversal(ctx context.Context, nodes int, flatten bool) {
	if err := initMetrics(); err != nil {
		return
	}
	traversalNodes.Record(ctx, int64(nodes), metric.WithAttributes(attribute.Bool("flatten", flatten)))
}
