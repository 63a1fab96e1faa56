package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	pm, err := NewPipelineMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordEventIngested(ctx, "email-provider", "accepted")
	pm.RecordEventIngested(ctx, "email-provider", "duplicate")
	pm.RecordQueueMessage(ctx, "notifications", "success")
	pm.RecordQueueMessage(ctx, "notifications", "failed")
	pm.RecordBreakerTransition(ctx, "rpc:get_submission_status", "closed", "open")

	server := httptest.NewServer(provider.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	output := string(body)

	assertBizMetricLine(t, output, "test_app_webhook_events_total",
		`source="email-provider".*status="accepted"`, "1")
	assertBizMetricLine(t, output, "test_app_webhook_events_total",
		`source="email-provider".*status="duplicate"`, "1")
	assertBizMetricLine(t, output, "test_app_queue_messages_total",
		`queue="notifications".*status="failed"`, "1")
	assertBizMetricLine(t, output, "test_app_breaker_transitions_total",
		`from="closed".*to="open"`, "1")
}

func TestNoOpPipelineMetrics(t *testing.T) {
	pm := NewNoOpPipelineMetrics()

	assert.NotPanics(t, func() {
		pm.RecordEventIngested(context.Background(), "custom", "accepted")
		pm.RecordQueueMessage(context.Background(), "package-build", "skipped")
		pm.RecordBreakerTransition(context.Background(), "chat-webhook", "open", "half-open")
	})
}
