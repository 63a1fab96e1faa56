package dto

import (
	"time"

	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// EventResponse represents a stored inbound event in API responses. The
// raw payload is not exposed; this endpoint answers "did my delivery
// land and was it processed", not "what did it say".
type EventResponse struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	EventType      string    `json:"event_type"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
	Processed      bool      `json:"processed"`
	Error          *string   `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MapEventToResponse converts a domain event to the API response.
func MapEventToResponse(event *webhookDomain.InboundEvent) EventResponse {
	return EventResponse{
		ID:             event.ID.String(),
		Source:         string(event.Source),
		EventType:      event.EventType,
		IdempotencyKey: event.IdempotencyKey,
		OccurredAt:     event.OccurredAt,
		Processed:      event.Processed,
		Error:          event.Error,
		CreatedAt:      event.CreatedAt,
	}
}
