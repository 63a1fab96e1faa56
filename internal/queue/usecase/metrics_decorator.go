package usecase

import (
	"context"
	"time"

	"github.com/JSONbored/claudepro-directory-sub000/internal/metrics"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
)

// consumerWithMetrics decorates Consumer with metrics instrumentation.
type consumerWithMetrics struct {
	next     Consumer
	business metrics.BusinessMetrics
	pipeline metrics.PipelineMetrics
}

// NewConsumerWithMetrics wraps a Consumer with metrics recording.
func NewConsumerWithMetrics(
	consumer Consumer,
	business metrics.BusinessMetrics,
	pipeline metrics.PipelineMetrics,
) Consumer {
	return &consumerWithMetrics{
		next:     consumer,
		business: business,
		pipeline: pipeline,
	}
}

// ProcessBatch records metrics for one consumer invocation and each
// message outcome inside it.
func (c *consumerWithMetrics) ProcessBatch(
	ctx context.Context,
	queue string,
) (*queueDomain.BatchResult, error) {
	start := time.Now()
	result, err := c.next.ProcessBatch(ctx, queue)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.business.RecordOperation(ctx, "queue", "batch_process", status)
	c.business.RecordDuration(ctx, "queue", "batch_process", time.Since(start), status)

	if result != nil {
		for _, r := range result.Results {
			c.pipeline.RecordQueueMessage(ctx, queue, r.Status)
		}
	}

	return result, err
}

// Queues delegates to the wrapped consumer.
func (c *consumerWithMetrics) Queues() []string {
	return c.next.Queues()
}
