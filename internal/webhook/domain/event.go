// Package domain defines the core inbound event entities and types.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source identifies the origin of an inbound event.
type Source string

const (
	SourceEmailProvider      Source = "email-provider"
	SourceDeploymentProvider Source = "deployment-provider"
	SourcePaymentsProvider   Source = "payments-provider"
	SourceCustom             Source = "custom"
)

// InboundEvent is a verified external event persisted exactly once.
// The payload is forwarded, never interpreted, by the ingestion core;
// downstream consumers flip Processed / Error, nothing else mutates a row.
type InboundEvent struct {
	ID             uuid.UUID
	Source         Source
	EventType      string
	Payload        json.RawMessage
	IdempotencyKey *string
	OccurredAt     time.Time
	Processed      bool
	Error          *string
	CreatedAt      time.Time
}

// IngestInput carries a verified webhook into the ingestor.
type IngestInput struct {
	Source     Source
	Headers    map[string]string
	ParsedBody map[string]any
	RawBody    json.RawMessage
}

// IngestOutput reports the persistence outcome. Duplicate means the
// idempotency key collided with an already persisted event; that is a
// success to the caller, never an error.
type IngestOutput struct {
	EventID   uuid.UUID
	Duplicate bool
}

// VerificationResult is the outcome of signature verification. Failure is
// a value, not an error: Err carries the reason (bad signature, missing
// configuration) and Verified stays false.
type VerificationResult struct {
	Source   Source
	Verified bool
	Err      error
}
