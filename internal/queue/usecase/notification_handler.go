package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
	queueService "github.com/JSONbored/claudepro-directory-sub000/internal/queue/service"
	"github.com/JSONbored/claudepro-directory-sub000/internal/rpc"
)

// submissionStatus is the remote answer to a submission lookup.
type submissionStatus struct {
	Status string `json:"status"`
}

// Submission lifecycle states as the remote procedure reports them.
const (
	statusDraft       = "draft"
	statusPlaceholder = "placeholder"
	statusPublished   = "published"
)

// notificationHandler announces new submissions on the team chat. The
// precondition re-checks the submission through the remote boundary so a
// submission withdrawn between enqueue and delivery is skipped, not
// announced.
type notificationHandler struct {
	caller   rpc.Caller
	outbound *queueService.Outbound
	chatURL  string
	logger   *slog.Logger
}

func (h *notificationHandler) Queue() string {
	return queueDomain.QueueNotifications
}

func (h *notificationHandler) Check(ctx context.Context, body json.RawMessage) (bool, error) {
	var job queueDomain.NotificationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return false, apperrors.Wrap(err, "failed to decode notification job")
	}
	if err := job.Validate(); err != nil {
		h.logger.Warn("skipping malformed notification job", slog.String("error", err.Error()))
		return false, nil
	}

	raw, err := h.caller.Call(ctx, "get_submission_status", map[string]string{
		"slug":     job.Slug,
		"category": job.Category,
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var status submissionStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return false, apperrors.Wrap(err, "failed to decode submission status")
	}

	return status.Status != statusDraft && status.Status != statusPlaceholder, nil
}

func (h *notificationHandler) Handle(ctx context.Context, body json.RawMessage) error {
	var job queueDomain.NotificationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return apperrors.Wrap(err, "failed to decode notification job")
	}

	text := fmt.Sprintf("New %s submission: %s (%s)", job.Category, job.Title, job.Slug)
	if job.Author != "" {
		text += " by " + job.Author
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode chat message")
	}

	// Chat webhook URLs carry their own credential; no bearer token.
	return h.outbound.PostJSON(ctx, "chat-webhook", h.chatURL, "", payload)
}

// NewNotificationHandler creates the notifications queue handler.
func NewNotificationHandler(
	caller rpc.Caller,
	outbound *queueService.Outbound,
	chatURL string,
	logger *slog.Logger,
) Handler {
	return &notificationHandler{
		caller:   caller,
		outbound: outbound,
		chatURL:  chatURL,
		logger:   logger,
	}
}
