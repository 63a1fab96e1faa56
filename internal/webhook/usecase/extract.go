package usecase

import (
	"time"

	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// extracted is the normalized envelope pulled out of a source-specific
// payload shape.
type extracted struct {
	eventType      string
	idempotencyKey *string
	occurredAt     time.Time
}

// extract applies the per-source field mapping. Each source names its
// event type, idempotency key, and timestamp differently; this table is
// the only place those shapes are known. Sources that advertise delivery
// idempotency fail hard on a missing key or timestamp, the rest fall
// back to receipt time.
func extract(input webhookDomain.IngestInput, now time.Time) (extracted, error) {
	switch input.Source {
	case webhookDomain.SourceEmailProvider:
		return extractEmail(input)
	case webhookDomain.SourceDeploymentProvider:
		return extractDeployment(input, now)
	case webhookDomain.SourcePaymentsProvider:
		return extractPayments(input, now)
	default:
		return extractCustom(input, now)
	}
}

// extractEmail is strict: the provider guarantees unique delivery IDs and
// stamped events, so absence of either is a malformed request, not a
// tolerable gap.
func extractEmail(input webhookDomain.IngestInput) (extracted, error) {
	eventType := stringField(input.ParsedBody, "type")
	if eventType == "" {
		return extracted{}, webhookDomain.ErrMissingEventType
	}

	key := input.Headers["webhook-id"]
	if key == "" {
		return extracted{}, webhookDomain.ErrMissingIdempotencyKey
	}

	occurredAt, ok := parseTimestamp(input.ParsedBody["created_at"])
	if !ok {
		return extracted{}, webhookDomain.ErrMissingTimestamp
	}

	return extracted{eventType: eventType, idempotencyKey: &key, occurredAt: occurredAt}, nil
}

func extractDeployment(input webhookDomain.IngestInput, now time.Time) (extracted, error) {
	eventType := stringField(input.ParsedBody, "type")
	if eventType == "" {
		return extracted{}, webhookDomain.ErrMissingEventType
	}

	out := extracted{eventType: eventType, occurredAt: now}
	if occurredAt, ok := parseTimestamp(input.ParsedBody["createdAt"]); ok {
		out.occurredAt = occurredAt
	}
	if key := stringField(input.ParsedBody, "id"); key != "" {
		out.idempotencyKey = &key
	} else if key := input.Headers["x-deploy-id"]; key != "" {
		out.idempotencyKey = &key
	}
	return out, nil
}

func extractPayments(input webhookDomain.IngestInput, now time.Time) (extracted, error) {
	eventType := stringField(input.ParsedBody, "type")
	if eventType == "" {
		return extracted{}, webhookDomain.ErrMissingEventType
	}

	out := extracted{eventType: eventType, occurredAt: now}
	if occurredAt, ok := parseTimestamp(input.ParsedBody["created"]); ok {
		out.occurredAt = occurredAt
	}
	if key := stringField(input.ParsedBody, "id"); key != "" {
		out.idempotencyKey = &key
	}
	return out, nil
}

func extractCustom(input webhookDomain.IngestInput, now time.Time) (extracted, error) {
	eventType := stringField(input.ParsedBody, "type")
	if eventType == "" {
		eventType = stringField(input.ParsedBody, "event")
	}
	if eventType == "" {
		return extracted{}, webhookDomain.ErrMissingEventType
	}

	out := extracted{eventType: eventType, occurredAt: now}
	if key := stringField(input.ParsedBody, "id"); key != "" {
		out.idempotencyKey = &key
	}
	return out, nil
}

func stringField(body map[string]any, key string) string {
	value, _ := body[key].(string)
	return value
}

// parseTimestamp accepts the two timestamp shapes seen across sources:
// an RFC 3339 string or a JSON number of Unix seconds.
func parseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed.UTC(), true
		}
	case float64:
		if v > 0 {
			return time.Unix(int64(v), 0).UTC(), true
		}
	}
	return time.Time{}, false
}
