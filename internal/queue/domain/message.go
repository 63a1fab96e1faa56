// Package domain defines the durable queue entities and job payloads.
package domain

import (
	"encoding/json"
	"time"

	validation "github.com/jellydator/validation"

	rules "github.com/JSONbored/claudepro-directory-sub000/internal/validation"
)

// Queue names. Each job category gets its own queue so a backlog in one
// never starves the others.
const (
	QueueNotifications     = "notifications"
	QueueCacheInvalidation = "cache-invalidation"
	QueuePackageBuild      = "package-build"
)

// Message is a claimable unit of work. ReadCount and VisibleAt are
// bookkeeping owned by the store: a claim bumps ReadCount and pushes
// VisibleAt past the visibility timeout, and an unclaimed deadline
// expiry is the only retry mechanism. Consumers never branch on
// ReadCount.
type Message struct {
	ID         int64
	Queue      string
	Body       json.RawMessage
	ReadCount  int
	EnqueuedAt time.Time
	VisibleAt  time.Time
}

// NotificationJob announces a new directory submission to the team chat.
type NotificationJob struct {
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
}

// Validate checks that the job names a real submission. Slug and
// category feed into chat text and remote lookups, so both follow the
// directory's kebab-case identifier format.
func (j *NotificationJob) Validate() error {
	return validation.ValidateStruct(j,
		validation.Field(&j.Slug, validation.Required, rules.Slug),
		validation.Field(&j.Category, validation.Required, rules.Slug),
		validation.Field(&j.Title, validation.Required, rules.NotBlank),
	)
}

// CacheInvalidationJob purges cache tags after content changes.
type CacheInvalidationJob struct {
	Tags []string `json:"tags"`
}

// Validate requires at least one well-formed tag.
func (j *CacheInvalidationJob) Validate() error {
	return validation.ValidateStruct(j,
		validation.Field(&j.Tags,
			validation.Required,
			validation.Each(validation.Required, rules.NotBlank, rules.NoWhitespace),
		),
	)
}

// PackageBuildJob builds and uploads the derived content bundle for a
// published record.
type PackageBuildJob struct {
	Slug     string `json:"slug"`
	Category string `json:"category"`
}

// Validate checks the slug and category before they are joined into the
// storage object path.
func (j *PackageBuildJob) Validate() error {
	return validation.ValidateStruct(j,
		validation.Field(&j.Slug, validation.Required, rules.Slug),
		validation.Field(&j.Category, validation.Required, rules.Slug),
	)
}

// Processing outcome per message.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// MessageResult reports one message's outcome within a batch. WillRetry
// is true when the message was left in place for redelivery.
type MessageResult struct {
	MessageID int64  `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	WillRetry bool   `json:"will_retry"`
}

// BatchResult is the outcome of one ProcessBatch invocation. A batch
// with failed messages is still a successful invocation; failures are
// data, not errors.
type BatchResult struct {
	Queue     string          `json:"queue"`
	Processed int             `json:"processed"`
	Results   []MessageResult `json:"results"`
}
