// Package http provides the manual trigger endpoint for queue
// processing.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	"github.com/JSONbored/claudepro-directory-sub000/internal/httputil"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
	queueUseCase "github.com/JSONbored/claudepro-directory-sub000/internal/queue/usecase"
)

// QueueHandler handles HTTP requests that trigger queue consumption.
type QueueHandler struct {
	consumer queueUseCase.Consumer
	logger   *slog.Logger
}

// NewQueueHandler creates a queue handler.
func NewQueueHandler(consumer queueUseCase.Consumer, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{consumer: consumer, logger: logger}
}

// ProcessHandler runs one consumer invocation against the named queue.
// POST /v1/queue/:name/process - Returns 200 with per-message results;
// a batch with failures is still a 200. Returns 404 for an unknown
// queue name.
func (h *QueueHandler) ProcessHandler(c *gin.Context) {
	queue := c.Param("name")

	result, err := h.consumer.ProcessBatch(c.Request.Context(), queue)
	if err != nil {
		if apperrors.Is(err, queueDomain.ErrUnknownQueue) {
			httputil.HandleErrorGin(c, apperrors.Wrapf(apperrors.ErrNotFound, "queue %q", queue), h.logger)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, result)
}
