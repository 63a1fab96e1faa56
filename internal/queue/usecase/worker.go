package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
)

// Worker drives the consumer on a fixed interval, sweeping every
// registered queue each tick. It is the background counterpart of the
// manual trigger endpoint; both run the same ProcessBatch path.
type Worker struct {
	consumer Consumer
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker that sweeps all queues every interval.
func NewWorker(consumer Consumer, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. A failing sweep is logged and the
// loop continues; messages left behind reappear on a later tick.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting queue worker",
		slog.Duration("interval", w.interval),
		slog.Any("queues", w.consumer.Queues()),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping queue worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one ProcessBatch per registered queue. Queues are
// independent and reads lock rows, so sweeps run concurrently.
func (w *Worker) sweep(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, queue := range w.consumer.Queues() {
		group.Go(func() error {
			result, err := w.consumer.ProcessBatch(groupCtx, queue)
			if err != nil {
				w.logger.Error("queue sweep failed",
					slog.String("queue", queue),
					slog.Any("error", err),
				)
				return nil
			}
			if result.Processed > 0 {
				w.logger.Info("queue sweep finished",
					slog.String("queue", queue),
					slog.Int("processed", result.Processed),
					slog.Int("failed", countFailed(result)),
				)
			}
			return nil
		})
	}
	_ = group.Wait()
}

func countFailed(result *queueDomain.BatchResult) int {
	failed := 0
	for _, r := range result.Results {
		if r.Status == queueDomain.StatusFailed {
			failed++
		}
	}
	return failed
}
