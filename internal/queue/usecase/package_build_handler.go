package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	queueDomain "github.com/JSONbored/claudepro-directory-sub000/internal/queue/domain"
	queueService "github.com/JSONbored/claudepro-directory-sub000/internal/queue/service"
	"github.com/JSONbored/claudepro-directory-sub000/internal/rpc"
)

// contentPackage is the derived bundle uploaded for a published record.
type contentPackage struct {
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Content     json.RawMessage `json:"content"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// packageBuildHandler builds the downloadable JSON bundle for a content
// record and uploads it to object storage. The precondition requires the
// record to be published; unpublished records enqueue no visible
// artifact.
type packageBuildHandler struct {
	caller    rpc.Caller
	outbound  *queueService.Outbound
	uploadURL string
	token     string
	logger    *slog.Logger
	now       func() time.Time
}

func (h *packageBuildHandler) Queue() string {
	return queueDomain.QueuePackageBuild
}

func (h *packageBuildHandler) Check(ctx context.Context, body json.RawMessage) (bool, error) {
	var job queueDomain.PackageBuildJob
	if err := json.Unmarshal(body, &job); err != nil {
		return false, apperrors.Wrap(err, "failed to decode package build job")
	}
	if err := job.Validate(); err != nil {
		h.logger.Warn("skipping malformed package build job", slog.String("error", err.Error()))
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

	return status.Status == statusPublished, nil
}

func (h *packageBuildHandler) Handle(ctx context.Context, body json.RawMessage) error {
	var job queueDomain.PackageBuildJob
	if err := json.Unmarshal(body, &job); err != nil {
		return apperrors.Wrap(err, "failed to decode package build job")
	}

	content, err := h.caller.Call(ctx, "get_content_item", map[string]string{
		"slug":     job.Slug,
		"category": job.Category,
	})
	if err != nil {
		return err
	}

	bundle, err := json.Marshal(contentPackage{
		Slug:        job.Slug,
		Category:    job.Category,
		Content:     content,
		GeneratedAt: h.now().UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode content package")
	}

	url := fmt.Sprintf("%s/%s/%s.json",
		strings.TrimSuffix(h.uploadURL, "/"), job.Category, job.Slug)
	if err := h.outbound.Put(ctx, "package-storage", url, h.token, "application/json", bundle); err != nil {
		return err
	}

	h.logger.Info("content package uploaded",
		slog.String("slug", job.Slug),
		slog.String("category", job.Category),
		slog.Int("bytes", len(bundle)),
	)
	return nil
}

// NewPackageBuildHandler creates the package-build queue handler.
func NewPackageBuildHandler(
	caller rpc.Caller,
	outbound *queueService.Outbound,
	uploadURL string,
	token string,
	logger *slog.Logger,
) Handler {
	return &packageBuildHandler{
		caller:    caller,
		outbound:  outbound,
		uploadURL: uploadURL,
		token:     token,
		logger:    logger,
		now:       time.Now,
	}
}
