// Package dto provides data transfer objects for webhook HTTP responses.
package dto

import (
	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

// IngestResponse acknowledges a webhook delivery. Duplicate deliveries
// are acknowledged the same way as first deliveries so senders never
// retry a replay.
type IngestResponse struct {
	Message   string `json:"message"`
	Source    string `json:"source"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// MapIngestOutputToResponse converts an ingestion outcome to the API
// response.
func MapIngestOutputToResponse(source webhookDomain.Source, output *webhookDomain.IngestOutput) IngestResponse {
	message := "event accepted"
	if output.Duplicate {
		message = "event already received"
	}

	return IngestResponse{
		Message:   message,
		Source:    string(source),
		EventID:   output.EventID.String(),
		Duplicate: output.Duplicate,
	}
}
