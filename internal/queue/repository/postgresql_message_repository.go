// Package repository implements the durable message store on PostgreSQL.
// Claiming is a single UPDATE over a FOR UPDATE SKIP LOCKED subselect so
// concurrent readers never hand out the same message twice.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/JSONbored/claudepro-directory-sub000/internal/database"
	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
)

// PostgreSQLMessageRepository implements Message persistence for
// PostgreSQL databases.
type PostgreSQLMessageRepository struct {
	db *sql.DB
}

// Send enqueues a payload on the named queue, immediately visible.
func (p *PostgreSQLMessageRepository) Send(
	ctx context.Context,
	queue string,
	payload json.RawMessage,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO queue_messages (queue, body, read_count, enqueued_at, visible_at)
			  VALUES ($1, $2, 0, now(), now())
			  RETURNING id`

	var id int64
	if err := querier.QueryRowContext(ctx, query, queue, payload).Scan(&id); err != nil {
		return 0, apperrors.Wrap(err, "failed to send queue message")
	}
	return id, nil
}

// Read claims up to max visible messages from the named queue. Each
// claimed message has its read_count bumped and its visible_at pushed
// past the visibility timeout; a message that is not deleted before the
// deadline reappears on a later read.
func (p *PostgreSQLMessageRepository) Read(
	ctx context.Context,
	queue string,
	max int,
	visibilityTimeout time.Duration,
) ([]*queueDomain.Message, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE queue_messages
			  SET read_count = read_count + 1, visible_at = now() + $3::interval
			  WHERE id IN (
				  SELECT id FROM queue_messages
				  WHERE queue = $1 AND visible_at <= now()
				  ORDER BY id
				  LIMIT $2
				  FOR UPDATE SKIP LOCKED
			  )
			  RETURNING id, queue, body, read_count, enqueued_at, visible_at`

	interval := visibilityTimeout.String()
	rows, err := querier.QueryContext(ctx, query, queue, max, interval)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read queue messages")
	}
	defer rows.Close()

	var messages []*queueDomain.Message
	for rows.Next() {
		var message queueDomain.Message
		err := rows.Scan(
			&message.ID,
			&message.Queue,
			&message.Body,
			&message.ReadCount,
			&message.EnqueuedAt,
			&message.VisibleAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan queue message")
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to read queue messages")
	}

	return messages, nil
}

// Delete acknowledges a processed message. Deleting an already deleted
// message is a no-op; redelivery races resolve in the consumer's favor.
func (p *PostgreSQLMessageRepository) Delete(ctx context.Context, queue string, id int64) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM queue_messages WHERE queue = $1 AND id = $2`

	if _, err := querier.ExecContext(ctx, query, queue, id); err != nil {
		return apperrors.Wrap(err, "failed to delete queue message")
	}
	return nil
}

// NewPostgreSQLMessageRepository creates a PostgreSQL-backed message
// repository.
func NewPostgreSQLMessageRepository(db *sql.DB) *PostgreSQLMessageRepository {
	return &PostgreSQLMessageRepository{db: db}
}
