// Package service provides the outbound HTTP side effects the queue
// handlers perform. Every call is paced by a shared rate limiter and
// wrapped in a per-destination circuit breaker outside a timeout guard.
package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/JSONbored/claudepro-directory-sub000/internal/breaker"
	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	"github.com/JSONbored/claudepro-directory-sub000/internal/guard"
)

// maxResponseBytes caps how much of an outbound response is read while
// draining error bodies.
const maxResponseBytes = 1 << 20

// Outbound performs rate-limited, breaker-protected HTTP calls to
// third-party endpoints. Destinations share the pace but not the
// breaker: each breaker key tracks one endpoint's health.
type Outbound struct {
	httpClient *http.Client
	breakers   *breaker.Registry
	settings   breaker.Settings
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *slog.Logger
}

// NewOutbound creates an Outbound client. requestsPerSec and burst feed
// the token bucket that paces all outbound traffic from this process.
func NewOutbound(
	breakers *breaker.Registry,
	settings breaker.Settings,
	requestsPerSec float64,
	burst int,
	timeout time.Duration,
	logger *slog.Logger,
) *Outbound {
	return &Outbound{
		httpClient: &http.Client{Timeout: 2 * timeout},
		breakers:   breakers,
		settings:   settings,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), burst),
		timeout:    timeout,
		logger:     logger,
	}
}

// PostJSON sends a JSON payload to url. token, when non-empty, is sent
// as a bearer credential. breakerKey scopes circuit state to the
// destination.
func (o *Outbound) PostJSON(
	ctx context.Context,
	breakerKey string,
	url string,
	token string,
	payload []byte,
) error {
	return o.do(ctx, breakerKey, http.MethodPost, url, token, "application/json", payload)
}

// Put uploads a body to url with the given content type.
func (o *Outbound) Put(
	ctx context.Context,
	breakerKey string,
	url string,
	token string,
	contentType string,
	body []byte,
) error {
	return o.do(ctx, breakerKey, http.MethodPut, url, token, contentType, body)
}

func (o *Outbound) do(
	ctx context.Context,
	breakerKey string,
	method string,
	url string,
	token string,
	contentType string,
	body []byte,
) error {
	// Pacing happens before the breaker so a wait never counts as a
	// dependency failure.
	if err := o.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(err, "outbound pacing interrupted")
	}

	return o.breakers.Do(ctx, breakerKey, o.settings, func(ctx context.Context) error {
		return guard.Do(ctx, o.timeout, func(ctx context.Context) error {
			return o.send(ctx, method, url, token, contentType, body)
		})
	})
}

func (o *Outbound) send(
	ctx context.Context,
	method string,
	url string,
	token string,
	contentType string,
	body []byte,
) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "failed to build outbound request")
	}
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, "outbound request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return apperrors.Newf(
			"outbound request returned status %d: %s", resp.StatusCode, string(snippet),
		)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}
