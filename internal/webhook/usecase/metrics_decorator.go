package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JSONbored/claudepro-directory-sub000/internal/metrics"
	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// eventUseCaseWithMetrics decorates EventUseCase with metrics
// instrumentation.
type eventUseCaseWithMetrics struct {
	next     EventUseCase
	business metrics.BusinessMetrics
	pipeline metrics.PipelineMetrics
}

// NewEventUseCaseWithMetrics wraps an EventUseCase with metrics
// recording.
func NewEventUseCaseWithMetrics(
	useCase EventUseCase,
	business metrics.BusinessMetrics,
	pipeline metrics.PipelineMetrics,
) EventUseCase {
	return &eventUseCaseWithMetrics{
		next:     useCase,
		business: business,
		pipeline: pipeline,
	}
}

// Ingest records metrics for webhook ingestion.
func (e *eventUseCaseWithMetrics) Ingest(
	ctx context.Context,
	input webhookDomain.IngestInput,
) (*webhookDomain.IngestOutput, error) {
	start := time.Now()
	output, err := e.next.Ingest(ctx, input)

	status := "success"
	outcome := "accepted"
	switch {
	case err != nil:
		status = "error"
		outcome = "rejected"
	case output.Duplicate:
		outcome = "duplicate"
	}

	e.business.RecordOperation(ctx, "webhook", "event_ingest", status)
	e.business.RecordDuration(ctx, "webhook", "event_ingest", time.Since(start), status)
	e.pipeline.RecordEventIngested(ctx, string(input.Source), outcome)

	return output, err
}

// Get records metrics for event lookups.
func (e *eventUseCaseWithMetrics) Get(
	ctx context.Context,
	id uuid.UUID,
) (*webhookDomain.InboundEvent, error) {
	start := time.Now()
	event, err := e.next.Get(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	e.business.RecordOperation(ctx, "webhook", "event_get", status)
	e.business.RecordDuration(ctx, "webhook", "event_get", time.Since(start), status)

	return event, err
}
