package domain

import "errors"

var (
	// ErrEventNotFound indicates the requested event doesn't exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrDuplicateEvent indicates an idempotency-key collision on insert.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrMissingEventType indicates the payload carries no event type.
	ErrMissingEventType = errors.New("missing event type")

	// ErrMissingIdempotencyKey indicates a source that guarantees delivery
	// uniqueness sent no idempotency key.
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")

	// ErrMissingTimestamp indicates a source that requires a claimed
	// timestamp sent none.
	ErrMissingTimestamp = errors.New("missing event timestamp")

	// ErrSecretNotConfigured indicates a signature scheme was detected but
	// no shared secret is configured for any source bound to it.
	ErrSecretNotConfigured = errors.New("webhook secret not configured")

	// ErrSignatureInvalid indicates the signature did not match the body.
	ErrSignatureInvalid = errors.New("signature verification failed")
)
