package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JSONbored/claudepro-directory-sub000/internal/database"
	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// eventTypeSubmissionCreated is the custom-source event that announces a
// new directory submission and triggers the notification follow-up.
const eventTypeSubmissionCreated = "submission.created"

// eventUseCase implements the EventUseCase interface.
type eventUseCase struct {
	txManager database.TxManager
	eventRepo EventRepository
	sender    MessageSender
	logger    *slog.Logger
	now       func() time.Time
}

// Ingest normalizes the source-specific payload, persists the event, and
// enqueues any follow-up work atomically with the insert. An idempotency
// collision short-circuits to {Duplicate: true}: nothing is enqueued for
// a replay.
func (e *eventUseCase) Ingest(
	ctx context.Context,
	input webhookDomain.IngestInput,
) (*webhookDomain.IngestOutput, error) {
	now := e.now().UTC()

	fields, err := extract(input, now)
	if err != nil {
		return nil, err
	}

	event := &webhookDomain.InboundEvent{
		ID:             uuid.Must(uuid.NewV7()),
		Source:         input.Source,
		EventType:      fields.eventType,
		Payload:        input.RawBody,
		IdempotencyKey: fields.idempotencyKey,
		OccurredAt:     fields.occurredAt,
		CreatedAt:      now,
	}

	err = e.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := e.eventRepo.Create(txCtx, event); err != nil {
			return err
		}
		return e.enqueueFollowUp(txCtx, event, input.ParsedBody)
	})
	if err != nil {
		if apperrors.Is(err, webhookDomain.ErrDuplicateEvent) {
			e.logger.Info("duplicate webhook suppressed",
				slog.String("source", string(input.Source)),
				slog.String("event_type", fields.eventType),
			)
			return &webhookDomain.IngestOutput{EventID: event.ID, Duplicate: true}, nil
		}
		return nil, err
	}

	return &webhookDomain.IngestOutput{EventID: event.ID}, nil
}

// enqueueFollowUp sends queue work derived from the event. It runs inside
// the insert transaction so an enqueue failure rolls back the event and
// the sender retries the whole delivery.
func (e *eventUseCase) enqueueFollowUp(
	ctx context.Context,
	event *webhookDomain.InboundEvent,
	parsedBody map[string]any,
) error {
	if event.Source != webhookDomain.SourceCustom || event.EventType != eventTypeSubmissionCreated {
		return nil
	}

	job := queueDomain.NotificationJob{
		Slug:     stringField(parsedBody, "slug"),
		Category: stringField(parsedBody, "category"),
		Title:    stringField(parsedBody, "title"),
		Author:   stringField(parsedBody, "author"),
	}
	if err := job.Validate(); err != nil {
		// The event itself is stored; only the follow-up is dropped.
		e.logger.Warn("submission payload failed validation, no notification enqueued",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode notification job")
	}

	if _, err := e.sender.Send(ctx, queueDomain.QueueNotifications, payload); err != nil {
		return err
	}

	e.logger.Info("notification job enqueued",
		slog.String("slug", job.Slug),
		slog.String("category", job.Category),
	)
	return nil
}

// Get retrieves a stored event by its identifier.
func (e *eventUseCase) Get(ctx context.Context, id uuid.UUID) (*webhookDomain.InboundEvent, error) {
	return e.eventRepo.Get(ctx, id)
}

// NewEventUseCase creates an EventUseCase with its dependencies.
func NewEventUseCase(
	txManager database.TxManager,
	eventRepo EventRepository,
	sender MessageSender,
	logger *slog.Logger,
) EventUseCase {
	return &eventUseCase{
		txManager: txManager,
		eventRepo: eventRepo,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}
