package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
)

// consumer implements the Consumer interface over a message repository
// and a set of registered handlers.
type consumer struct {
	messageRepo       MessageRepository
	handlers          map[string]Handler
	batchSize         int
	visibilityTimeout time.Duration
	logger            *slog.Logger
}

// ProcessBatch claims up to batchSize messages and processes them
// sequentially in read order. Per message: decode nothing here, hand the
// raw body to the handler; a precondition miss deletes the message as
// skipped, success deletes it, and any failure leaves it in place so the
// visibility timeout redelivers it. There is no other retry mechanism.
func (c *consumer) ProcessBatch(ctx context.Context, queue string) (*queueDomain.BatchResult, error) {
	handler, ok := c.handlers[queue]
	if !ok {
		return nil, queueDomain.ErrUnknownQueue
	}

	messages, err := c.messageRepo.Read(ctx, queue, c.batchSize, c.visibilityTimeout)
	if err != nil {
		return nil, err
	}

	result := &queueDomain.BatchResult{
		Queue:   queue,
		Results: make([]queueDomain.MessageResult, 0, len(messages)),
	}

	for _, message := range messages {
		result.Results = append(result.Results, c.processMessage(ctx, handler, message))
		result.Processed++
	}

	return result, nil
}

// processMessage runs check, handle, delete for one message. Failures
// are contained in the returned result; nothing a single message does
// can fail the batch.
func (c *consumer) processMessage(
	ctx context.Context,
	handler Handler,
	message *queueDomain.Message,
) queueDomain.MessageResult {
	logger := c.logger.With(
		slog.String("queue", message.Queue),
		slog.Int64("message_id", message.ID),
		slog.Int("read_count", message.ReadCount),
	)

	applies, err := handler.Check(ctx, message.Body)
	if err != nil {
		logger.Error("precondition check failed", slog.Any("error", err))
		return queueDomain.MessageResult{
			MessageID: message.ID,
			Status:    queueDomain.StatusFailed,
			Error:     err.Error(),
			WillRetry: true,
		}
	}
	if !applies {
		if err := c.messageRepo.Delete(ctx, message.Queue, message.ID); err != nil {
			logger.Error("failed to delete skipped message", slog.Any("error", err))
		}
		logger.Info("message skipped")
		return queueDomain.MessageResult{MessageID: message.ID, Status: queueDomain.StatusSkipped}
	}

	if err := handler.Handle(ctx, message.Body); err != nil {
		logger.Error("message processing failed", slog.Any("error", err))
		return queueDomain.MessageResult{
			MessageID: message.ID,
			Status:    queueDomain.StatusFailed,
			Error:     err.Error(),
			WillRetry: true,
		}
	}

	if err := c.messageRepo.Delete(ctx, message.Queue, message.ID); err != nil {
		// The side effect happened but the ack failed; the message will
		// be redelivered, which is why handlers must be re-runnable.
		logger.Error("failed to delete processed message", slog.Any("error", err))
	}
	logger.Info("message processed")
	return queueDomain.MessageResult{MessageID: message.ID, Status: queueDomain.StatusSuccess}
}

// Queues lists the registered queue names in stable order.
func (c *consumer) Queues() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewConsumer creates a Consumer dispatching to the given handlers.
func NewConsumer(
	messageRepo MessageRepository,
	handlers []Handler,
	batchSize int,
	visibilityTimeout time.Duration,
	logger *slog.Logger,
) Consumer {
	byQueue := make(map[string]Handler, len(handlers))
	for _, handler := range handlers {
		byQueue[handler.Queue()] = handler
	}

	return &consumer{
		messageRepo:       messageRepo,
		handlers:          byQueue,
		batchSize:         batchSize,
		visibilityTimeout: visibilityTimeout,
		logger:            logger,
	}
}
