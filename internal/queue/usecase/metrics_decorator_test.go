package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JSONbored/claudepro-directory-sub000/internal/metrics"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// mockPipelineMetrics is a mock implementation of metrics.PipelineMetrics for testing.
type mockPipelineMetrics struct {
	mock.Mock
}

func (m *mockPipelineMetrics) RecordEventIngested(ctx context.Context, source, status string) {
	m.Called(ctx, source, status)
}

func (m *mockPipelineMetrics) RecordQueueMessage(ctx context.Context, queue, status string) {
	m.Called(ctx, queue, status)
}

func (m *mockPipelineMetrics) RecordBreakerTransition(ctx context.Context, key, from, to string) {
	m.Called(ctx, key, from, to)
}

var _ metrics.PipelineMetrics = (*mockPipelineMetrics)(nil)

func TestConsumerWithMetrics_ProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsPerMessageOutcomes", func(t *testing.T) {
		mockConsumer := &MockConsumerStub{
			result: &queueDomain.BatchResult{
				Queue:     queueDomain.QueueNotifications,
				Processed: 3,
				Results: []queueDomain.MessageResult{
					{MessageID: 1, Status: queueDomain.StatusSuccess},
					{MessageID: 2, Status: queueDomain.StatusSkipped},
					{MessageID: 3, Status: queueDomain.StatusFailed, WillRetry: true},
				},
			},
		}
		mockBiz := &mockBusinessMetrics{}
		mockPipe := &mockPipelineMetrics{}

		mockBiz.On("RecordOperation", ctx, "queue", "batch_process", "success")
		mockBiz.On("RecordDuration", ctx, "queue", "batch_process", mock.Anything, "success")
		mockPipe.On("RecordQueueMessage", ctx, queueDomain.QueueNotifications, queueDomain.StatusSuccess)
		mockPipe.On("RecordQueueMessage", ctx, queueDomain.QueueNotifications, queueDomain.StatusSkipped)
		mockPipe.On("RecordQueueMessage", ctx, queueDomain.QueueNotifications, queueDomain.StatusFailed)

		decorated := NewConsumerWithMetrics(mockConsumer, mockBiz, mockPipe)
		result, err := decorated.ProcessBatch(ctx, queueDomain.QueueNotifications)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Processed)
		mockBiz.AssertExpectations(t)
		mockPipe.AssertExpectations(t)
	})

	t.Run("UnknownQueue_RecordsError", func(t *testing.T) {
		mockConsumer := &MockConsumerStub{err: queueDomain.ErrUnknownQueue}
		mockBiz := &mockBusinessMetrics{}
		mockPipe := &mockPipelineMetrics{}

		mockBiz.On("RecordOperation", ctx, "queue", "batch_process", "error")
		mockBiz.On("RecordDuration", ctx, "queue", "batch_process", mock.Anything, "error")

		decorated := NewConsumerWithMetrics(mockConsumer, mockBiz, mockPipe)
		_, err := decorated.ProcessBatch(ctx, "bogus")

		assert.ErrorIs(t, err, queueDomain.ErrUnknownQueue)
		mockBiz.AssertExpectations(t)
		mockPipe.AssertNotCalled(t, "RecordQueueMessage", mock.Anything, mock.Anything, mock.Anything)
	})
}

// MockConsumerStub is a scripted Consumer for decorator tests.
type MockConsumerStub struct {
	result *queueDomain.BatchResult
	err    error
}

func (m *MockConsumerStub) ProcessBatch(_ context.Context, _ string) (*queueDomain.BatchResult, error) {
	return m.result, m.err
}

func (m *MockConsumerStub) Queues() []string {
	return []string{queueDomain.QueueNotifications}
}
