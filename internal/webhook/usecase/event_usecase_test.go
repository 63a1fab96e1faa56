package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	// Execute the function to test the logic inside
	return fn(ctx)
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *webhookDomain.InboundEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*webhookDomain.InboundEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhookDomain.InboundEvent), args.Error(1)
}

func (m *MockEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processingErr *string) error {
	args := m.Called(ctx, id, processingErr)
	return args.Error(0)
}

// MockMessageSender is a mock implementation of MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) Send(
	ctx context.Context,
	queue string,
	payload json.RawMessage,
) (int64, error) {
	args := m.Called(ctx, queue, payload)
	return args.Get(0).(int64), args.Error(1)
}

func newTestUseCase(
	txManager *MockTxManager,
	eventRepo *MockEventRepository,
	sender *MockMessageSender,
) EventUseCase {
	return NewEventUseCase(txManager, eventRepo, sender, slog.New(slog.DiscardHandler))
}

func emailInput() webhookDomain.IngestInput {
	return webhookDomain.IngestInput{
		Source: webhookDomain.SourceEmailProvider,
		Headers: map[string]string{
			"webhook-id": "msg_001",
		},
		ParsedBody: map[string]any{
			"type":       "email.delivered",
			"created_at": "2026-08-01T10:00:00Z",
		},
		RawBody: json.RawMessage(`{"type":"email.delivered","created_at":"2026-08-01T10:00:00Z"}`),
	}
}

func TestEventUseCase_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EmailEvent", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.MatchedBy(func(event *webhookDomain.InboundEvent) bool {
			return event.Source == webhookDomain.SourceEmailProvider &&
				event.EventType == "email.delivered" &&
				event.IdempotencyKey != nil && *event.IdempotencyKey == "msg_001" &&
				event.OccurredAt.Equal(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
		})).Return(nil)

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		output, err := useCase.Ingest(ctx, emailInput())

		require.NoError(t, err)
		assert.False(t, output.Duplicate)
		assert.NotEqual(t, uuid.UUID{}, output.EventID)
		mockEventRepo.AssertExpectations(t)
		mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Duplicate_ReturnsSuccessWithFlag", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.Anything).Return(webhookDomain.ErrDuplicateEvent)

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		output, err := useCase.Ingest(ctx, emailInput())

		require.NoError(t, err)
		assert.True(t, output.Duplicate)
		mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SubmissionCreated_EnqueuesNotificationJob", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.Anything).Return(nil)
		mockSender.On("Send", ctx, queueDomain.QueueNotifications, mock.MatchedBy(func(payload json.RawMessage) bool {
			var job queueDomain.NotificationJob
			if err := json.Unmarshal(payload, &job); err != nil {
				return false
			}
			return job.Slug == "agent-toolkit" && job.Category == "agents" && job.Title == "Agent Toolkit"
		})).Return(int64(1), nil)

		input := webhookDomain.IngestInput{
			Source: webhookDomain.SourceCustom,
			ParsedBody: map[string]any{
				"type":     "submission.created",
				"slug":     "agent-toolkit",
				"category": "agents",
				"title":    "Agent Toolkit",
			},
			RawBody: json.RawMessage(`{"type":"submission.created"}`),
		}

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		output, err := useCase.Ingest(ctx, input)

		require.NoError(t, err)
		assert.False(t, output.Duplicate)
		mockSender.AssertExpectations(t)
	})

	t.Run("EnqueueFailure_RollsBackThroughTx", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.Anything).Return(nil)
		mockSender.On("Send", ctx, queueDomain.QueueNotifications, mock.Anything).
			Return(int64(0), apperrors.New("queue unavailable"))

		input := webhookDomain.IngestInput{
			Source: webhookDomain.SourceCustom,
			ParsedBody: map[string]any{
				"type":     "submission.created",
				"slug":     "agent-toolkit",
				"category": "agents",
				"title":    "Agent Toolkit",
			},
			RawBody: json.RawMessage(`{}`),
		}

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		_, err := useCase.Ingest(ctx, input)

		assert.Error(t, err)
	})

	t.Run("SubmissionWithInvalidSlug_StoredWithoutFollowUp", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.Anything).Return(nil)

		input := webhookDomain.IngestInput{
			Source: webhookDomain.SourceCustom,
			ParsedBody: map[string]any{
				"type":  "submission.created",
				"slug":  "../not-a-slug",
				"title": "x",
			},
			RawBody: json.RawMessage(`{}`),
		}

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		output, err := useCase.Ingest(ctx, input)

		require.NoError(t, err)
		assert.False(t, output.Duplicate)
		mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingEventType_Invalid", func(t *testing.T) {
		useCase := newTestUseCase(&MockTxManager{}, &MockEventRepository{}, &MockMessageSender{})

		input := webhookDomain.IngestInput{
			Source:     webhookDomain.SourceCustom,
			ParsedBody: map[string]any{"payload": "no type here"},
		}

		_, err := useCase.Ingest(ctx, input)
		assert.ErrorIs(t, err, webhookDomain.ErrMissingEventType)
	})

	t.Run("EmailMissingIdempotencyKey_HardFailure", func(t *testing.T) {
		useCase := newTestUseCase(&MockTxManager{}, &MockEventRepository{}, &MockMessageSender{})

		input := emailInput()
		delete(input.Headers, "webhook-id")

		_, err := useCase.Ingest(ctx, input)
		assert.ErrorIs(t, err, webhookDomain.ErrMissingIdempotencyKey)
	})

	t.Run("EmailMissingTimestamp_HardFailure", func(t *testing.T) {
		useCase := newTestUseCase(&MockTxManager{}, &MockEventRepository{}, &MockMessageSender{})

		input := emailInput()
		delete(input.ParsedBody, "created_at")

		_, err := useCase.Ingest(ctx, input)
		assert.ErrorIs(t, err, webhookDomain.ErrMissingTimestamp)
	})

	t.Run("DeploymentMissingTimestamp_FallsBackToNow", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.MatchedBy(func(event *webhookDomain.InboundEvent) bool {
			return event.IdempotencyKey != nil && *event.IdempotencyKey == "deploy_42" &&
				!event.OccurredAt.IsZero()
		})).Return(nil)

		input := webhookDomain.IngestInput{
			Source:     webhookDomain.SourceDeploymentProvider,
			Headers:    map[string]string{"x-deploy-id": "deploy_42"},
			ParsedBody: map[string]any{"type": "deployment.created"},
			RawBody:    json.RawMessage(`{"type":"deployment.created"}`),
		}

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		_, err := useCase.Ingest(ctx, input)

		require.NoError(t, err)
		mockEventRepo.AssertExpectations(t)
	})

	t.Run("PaymentsUnixTimestamp", func(t *testing.T) {
		mockTxManager := &MockTxManager{}
		mockEventRepo := &MockEventRepository{}
		mockSender := &MockMessageSender{}

		mockTxManager.On("WithTx", ctx, mock.Anything).Return(nil)
		mockEventRepo.On("Create", ctx, mock.MatchedBy(func(event *webhookDomain.InboundEvent) bool {
			return event.OccurredAt.Equal(time.Unix(1754042400, 0).UTC()) &&
				event.IdempotencyKey != nil && *event.IdempotencyKey == "evt_55"
		})).Return(nil)

		input := webhookDomain.IngestInput{
			Source: webhookDomain.SourcePaymentsProvider,
			ParsedBody: map[string]any{
				"type":    "charge.succeeded",
				"id":      "evt_55",
				"created": float64(1754042400),
			},
			RawBody: json.RawMessage(`{"type":"charge.succeeded"}`),
		}

		useCase := newTestUseCase(mockTxManager, mockEventRepo, mockSender)
		_, err := useCase.Ingest(ctx, input)

		require.NoError(t, err)
		mockEventRepo.AssertExpectations(t)
	})
}
