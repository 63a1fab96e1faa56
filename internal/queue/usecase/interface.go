// Package usecase implements the queue consumer loop and the job
// handlers it dispatches to.
package usecase

import (
	"context"
	"encoding/json"
	"time"

	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
)

// MessageRepository defines the interface for durable queue operations.
type MessageRepository interface {
	Send(ctx context.Context, queue string, payload json.RawMessage) (int64, error)
	Read(ctx context.Context, queue string, max int, visibilityTimeout time.Duration) ([]*queueDomain.Message, error)
	Delete(ctx context.Context, queue string, id int64) error
}

// Handler processes one job category. Implementations must be
// re-runnable: redelivery after a visibility timeout means any handler
// can see the same message twice.
type Handler interface {
	// Queue names the queue this handler consumes.
	Queue() string
	// Check is the precondition gate. A false result means the job no
	// longer applies and the message is deleted as skipped; an error
	// means the check itself failed and the message is retried.
	Check(ctx context.Context, body json.RawMessage) (bool, error)
	// Handle performs the job's side effect.
	Handle(ctx context.Context, body json.RawMessage) error
}

// Consumer defines the interface for queue batch processing.
type Consumer interface {
	// ProcessBatch runs one consumer invocation against the named queue.
	// A batch containing failed messages is still a successful
	// invocation; only an unknown queue or a failed read is an error.
	ProcessBatch(ctx context.Context, queue string) (*queueDomain.BatchResult, error)
	// Queues lists the queue names with registered handlers.
	Queues() []string
}
