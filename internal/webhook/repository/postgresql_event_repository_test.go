package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

func testEvent() *webhookDomain.InboundEvent {
	key := "evt_abc123"
	return &webhookDomain.InboundEvent{
		ID:             uuid.Must(uuid.NewV7()),
		Source:         webhookDomain.SourceEmailProvider,
		EventType:      "email.delivered",
		Payload:        []byte(`{"type":"email.delivered"}`),
		IdempotencyKey: &key,
		OccurredAt:     time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}
}

func TestPostgreSQLEventRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLEventRepository(db)
	event := testEvent()

	mock.ExpectExec("INSERT INTO inbound_events").
		WithArgs(
			event.ID,
			event.Source,
			event.EventType,
			event.Payload,
			event.IdempotencyKey,
			event.OccurredAt,
			event.Processed,
			event.Error,
			event.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), event)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLEventRepository_Create_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLEventRepository(db)
	event := testEvent()

	mock.ExpectExec("INSERT INTO inbound_events").
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.Create(context.Background(), event)
	assert.ErrorIs(t, err, webhookDomain.ErrDuplicateEvent)
}

func TestPostgreSQLEventRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLEventRepository(db)
	event := testEvent()

	rows := sqlmock.NewRows([]string{
		"id", "source", "event_type", "payload", "idempotency_key",
		"occurred_at", "processed", "error", "created_at",
	}).AddRow(
		event.ID, event.Source, event.EventType, event.Payload,
		event.IdempotencyKey, event.OccurredAt, event.Processed,
		event.Error, event.CreatedAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM inbound_events").
		WithArgs(event.ID).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.EventType, got.EventType)
	require.NotNil(t, got.IdempotencyKey)
	assert.Equal(t, *event.IdempotencyKey, *got.IdempotencyKey)
}

func TestPostgreSQLEventRepository_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLEventRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectQuery("SELECT (.+) FROM inbound_events").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, webhookDomain.ErrEventNotFound)
}

func TestPostgreSQLEventRepository_MarkProcessed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLEventRepository(db)
	id := uuid.Must(uuid.NewV7())
	message := "downstream notification failed"

	mock.ExpectExec("UPDATE inbound_events SET processed").
		WithArgs(id, &message).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkProcessed(context.Background(), id, &message)
	require.NoError(t, err)
}

func TestPostgreSQLEventRepository_MarkProcessed_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLEventRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec("UPDATE inbound_events SET processed").
		WithArgs(id, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkProcessed(context.Background(), id, nil)
	assert.ErrorIs(t, err, webhookDomain.ErrEventNotFound)
}
