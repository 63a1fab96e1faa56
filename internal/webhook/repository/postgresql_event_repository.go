// Package repository implements persistence for inbound webhook events.
// Duplicate suppression is enforced by the database: a partial unique
// index on (source, idempotency_key) surfaces replays as unique
// violations, which repositories translate into the domain error.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/JSONbored/claudepro-directory-sub000/internal/database"
	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// PostgreSQLEventRepository implements InboundEvent persistence for
// PostgreSQL databases.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// Create inserts a new inbound event. A unique violation on the
// idempotency index is returned as domain.ErrDuplicateEvent.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *webhookDomain.InboundEvent) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO inbound_events (id, source, event_type, payload, idempotency_key, occurred_at, processed, error, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.Source,
		event.EventType,
		event.Payload,
		event.IdempotencyKey,
		event.OccurredAt,
		event.Processed,
		event.Error,
		event.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return webhookDomain.ErrDuplicateEvent
		}
		return apperrors.Wrap(err, "failed to create inbound event")
	}
	return nil
}

// Get retrieves an inbound event by its identifier.
func (p *PostgreSQLEventRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*webhookDomain.InboundEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, source, event_type, payload, idempotency_key, occurred_at, processed, error, created_at
			  FROM inbound_events
			  WHERE id = $1`

	var event webhookDomain.InboundEvent
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Source,
		&event.EventType,
		&event.Payload,
		&event.IdempotencyKey,
		&event.OccurredAt,
		&event.Processed,
		&event.Error,
		&event.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, webhookDomain.ErrEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get inbound event")
	}

	return &event, nil
}

// MarkProcessed records the outcome of downstream processing for an
// event. A nil processingErr clears any previous error message.
func (p *PostgreSQLEventRepository) MarkProcessed(
	ctx context.Context,
	id uuid.UUID,
	processingErr *string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE inbound_events SET processed = true, error = $2 WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id, processingErr)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark inbound event processed")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to mark inbound event processed")
	}
	if rows == 0 {
		return webhookDomain.ErrEventNotFound
	}
	return nil
}

// NewPostgreSQLEventRepository creates a PostgreSQL-backed event
// repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}
