// Package http provides the HTTP handler for inbound webhook deliveries.
// The handler owns the raw-body discipline: the body is read once with a
// size cap, verified byte-for-byte, and only then parsed.
package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	"github.com/JSONbored/claudepro-directory-sub000/internal/httputil"
	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
	"github.com/JSONbored/claudepro-directory-sub000/internal/webhook/http/dto"
	webhookService "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/service"
	webhookUseCase "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/usecase"
)

// WebhookHandler handles inbound webhook deliveries.
type WebhookHandler struct {
	verifier        webhookService.Verifier
	eventUseCase    webhookUseCase.EventUseCase
	maxBodyBytes    int64
	allowUnverified bool
	logger          *slog.Logger
}

// NewWebhookHandler creates a webhook handler. allowUnverified admits
// custom-source events that carry no recognized signature headers; it
// never bypasses a failed verification.
func NewWebhookHandler(
	verifier webhookService.Verifier,
	eventUseCase webhookUseCase.EventUseCase,
	maxBodyBytes int64,
	allowUnverified bool,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:        verifier,
		eventUseCase:    eventUseCase,
		maxBodyBytes:    maxBodyBytes,
		allowUnverified: allowUnverified,
		logger:          logger,
	}
}

// ReceiveHandler ingests one webhook delivery.
// POST /v1/webhook - Verifies the signature over the raw body, then
// persists the event. Returns 200 with the ingestion outcome, 400 for
// malformed payloads, 401 for failed verification.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	body, err := io.ReadAll(reader)
	if err != nil {
		httputil.HandleBadRequestGin(c, apperrors.Wrap(err, "failed to read request body"), h.logger)
		return
	}

	result := h.verifier.Verify(c.Request.Header, body)
	if !result.Verified {
		if result.Err != nil {
			h.logger.Warn("webhook verification failed",
				slog.String("source", string(result.Source)),
				slog.Any("error", result.Err),
			)
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
			return
		}
		if !h.allowUnverified {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
			return
		}
	}

	var parsedBody map[string]any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		httputil.HandleBadRequestGin(c, apperrors.Wrap(err, "failed to parse request body"), h.logger)
		return
	}

	input := webhookDomain.IngestInput{
		Source:     result.Source,
		Headers:    flattenHeaders(c.Request.Header),
		ParsedBody: parsedBody,
		RawBody:    body,
	}

	output, err := h.eventUseCase.Ingest(c.Request.Context(), input)
	if err != nil {
		switch {
		case apperrors.Is(err, webhookDomain.ErrMissingEventType),
			apperrors.Is(err, webhookDomain.ErrMissingIdempotencyKey),
			apperrors.Is(err, webhookDomain.ErrMissingTimestamp):
			httputil.HandleBadRequestGin(c, err, h.logger)
		default:
			httputil.HandleErrorGin(c, err, h.logger)
		}
		return
	}

	c.JSON(http.StatusOK, dto.MapIngestOutputToResponse(result.Source, output))
}

// flattenHeaders lowers header names and keeps the first value of each,
// matching the shape the extraction table expects.
func flattenHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			out[strings.ToLower(name)] = values[0]
		}
	}
	return out
}

// GetEventHandler retrieves a stored event's metadata.
// GET /v1/events/:id - Returns 200 with the event, 400 for a malformed
// identifier, 404 when no event exists.
func (h *WebhookHandler) GetEventHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, apperrors.Wrap(err, "invalid event id"), h.logger)
		return
	}

	event, err := h.eventUseCase.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.Is(err, webhookDomain.ErrEventNotFound) {
			httputil.HandleErrorGin(c, apperrors.ErrNotFound, h.logger)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEventToResponse(event))
}
