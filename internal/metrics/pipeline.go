package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records the ingestion pipeline's own counters: events
// accepted at the webhook boundary, queue message outcomes, and circuit
// breaker transitions.
type PipelineMetrics interface {
	// RecordEventIngested counts one webhook delivery.
	// Status: "accepted", "duplicate", "rejected".
	RecordEventIngested(ctx context.Context, source, status string)

	// RecordQueueMessage counts one processed queue message.
	// Status: "success", "skipped", "failed".
	RecordQueueMessage(ctx context.Context, queue, status string)

	// RecordBreakerTransition counts a circuit breaker state change.
	RecordBreakerTransition(ctx context.Context, key, from, to string)
}

type pipelineMetrics struct {
	eventCounter      metric.Int64Counter
	messageCounter    metric.Int64Counter
	transitionCounter metric.Int64Counter
}

// NewPipelineMetrics creates a PipelineMetrics implementation using the
// provided meter provider.
func NewPipelineMetrics(meterProvider metric.MeterProvider, namespace string) (PipelineMetrics, error) {
	meter := meterProvider.Meter(namespace)

	eventCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhook_events_total", namespace),
		metric.WithDescription("Total number of webhook deliveries by source and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}

	messageCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_queue_messages_total", namespace),
		metric.WithDescription("Total number of queue messages by queue and outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message counter: %w", err)
	}

	transitionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_breaker_transitions_total", namespace),
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition counter: %w", err)
	}

	return &pipelineMetrics{
		eventCounter:      eventCounter,
		messageCounter:    messageCounter,
		transitionCounter: transitionCounter,
	}, nil
}

func (p *pipelineMetrics) RecordEventIngested(ctx context.Context, source, status string) {
	p.eventCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
		),
	)
}

func (p *pipelineMetrics) RecordQueueMessage(ctx context.Context, queue, status string) {
	p.messageCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("queue", queue),
			attribute.String("status", status),
		),
	)
}

func (p *pipelineMetrics) RecordBreakerTransition(ctx context.Context, key, from, to string) {
	p.transitionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("key", key),
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// NoOpPipelineMetrics is a no-op implementation for when metrics are
// disabled.
type NoOpPipelineMetrics struct{}

// NewNoOpPipelineMetrics creates a no-op PipelineMetrics implementation.
func NewNoOpPipelineMetrics() PipelineMetrics {
	return &NoOpPipelineMetrics{}
}

func (n *NoOpPipelineMetrics) RecordEventIngested(ctx context.Context, source, status string) {}

func (n *NoOpPipelineMetrics) RecordQueueMessage(ctx context.Context, queue, status string) {}

func (n *NoOpPipelineMetrics) RecordBreakerTransition(ctx context.Context, key, from, to string) {}
