// Package usecase implements the ingestion business logic for inbound
// webhooks: per-source field extraction, duplicate suppression, and the
// transactional follow-up enqueue.
package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// EventRepository defines the interface for InboundEvent persistence
// operations.
type EventRepository interface {
	Create(ctx context.Context, event *webhookDomain.InboundEvent) error
	Get(ctx context.Context, id uuid.UUID) (*webhookDomain.InboundEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processingErr *string) error
}

// MessageSender enqueues follow-up work on the durable queue.
type MessageSender interface {
	Send(ctx context.Context, queue string, payload json.RawMessage) (int64, error)
}

// EventUseCase defines the interface for webhook ingestion business logic.
type EventUseCase interface {
	// Ingest persists a verified webhook exactly once. A duplicate
	// idempotency key is reported as {Duplicate: true} with no error so
	// callers acknowledge the delivery instead of provoking a retry.
	Ingest(ctx context.Context, input webhookDomain.IngestInput) (*webhookDomain.IngestOutput, error)
	// Get retrieves a stored event by its identifier.
	Get(ctx context.Context, id uuid.UUID) (*webhookDomain.InboundEvent, error)
}
