package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
	queueService "github.com/JSONbored/claudepro-directory-sub000/internal/queue/service"
)

// cacheInvalidationHandler purges cache tags at the edge after content
// changes. Purging a tag twice is harmless, so there is no precondition
// beyond a decodable job with at least one tag.
type cacheInvalidationHandler struct {
	outbound *queueService.Outbound
	purgeURL string
	token    string
	logger   *slog.Logger
}

func (h *cacheInvalidationHandler) Queue() string {
	return queueDomain.QueueCacheInvalidation
}

func (h *cacheInvalidationHandler) Check(ctx context.Context, body json.RawMessage) (bool, error) {
	var job queueDomain.CacheInvalidationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return false, apperrors.Wrap(err, "failed to decode cache invalidation job")
	}
	if err := job.Validate(); err != nil {
		h.logger.Warn("skipping malformed cache invalidation job", slog.String("error", err.Error()))
		return false, nil
	}
	return true, nil
}

func (h *cacheInvalidationHandler) Handle(ctx context.Context, body json.RawMessage) error {
	var job queueDomain.CacheInvalidationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return apperrors.Wrap(err, "failed to decode cache invalidation job")
	}

	payload, err := json.Marshal(map[string][]string{"tags": job.Tags})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode purge request")
	}

	if err := h.outbound.PostJSON(ctx, "cache-purge", h.purgeURL, h.token, payload); err != nil {
		return err
	}

	h.logger.Info("cache tags purged", slog.Int("tags", len(job.Tags)))
	return nil
}

// NewCacheInvalidationHandler creates the cache-invalidation queue
// handler.
func NewCacheInvalidationHandler(
	outbound *queueService.Outbound,
	purgeURL string,
	token string,
	logger *slog.Logger,
) Handler {
	return &cacheInvalidationHandler{
		outbound: outbound,
		purgeURL: purgeURL,
		token:    token,
		logger:   logger,
	}
}
