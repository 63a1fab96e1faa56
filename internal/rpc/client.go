// Package rpc reaches the external stored-procedure boundary. All business
// logic lives behind it; this side only does authenticated POSTs with a
// circuit breaker and timeout guard layered around each call.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JSONbored/claudepro-directory-sub000/internal/breaker"
	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
	"github.com/JSONbored/claudepro-directory-sub000/internal/guard"
)

// Caller invokes a named remote procedure with JSON arguments and returns
// the raw JSON result.
type Caller interface {
	Call(ctx context.Context, name string, args any) (json.RawMessage, error)
}

// Client is an HTTP-backed Caller. Each procedure gets its own breaker
// key so one failing procedure does not open the circuit for the others.
//
// Composition order is breaker outside timeout: a timed-out call counts
// as a breaker failure.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	settings   breaker.Settings
	breakers   *breaker.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client that POSTs to baseURL/<name>.
func NewClient(
	baseURL string,
	token string,
	timeout time.Duration,
	settings breaker.Settings,
	breakers *breaker.Registry,
	logger *slog.Logger,
) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		timeout:  timeout,
		settings: settings,
		breakers: breakers,
		// The transport timeout backstops the guard; the guard is the
		// authoritative deadline.
		httpClient: &http.Client{Timeout: 2 * timeout},
		logger:     logger,
	}
}

// callResponse is the wire shape of a remote procedure result.
type callResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
}

// Call invokes the named procedure. Returns ErrCircuitOpen without
// attempting the call when the procedure's breaker is open, and
// ErrTimeout when the call outlives its deadline.
func (c *Client) Call(ctx context.Context, name string, args any) (json.RawMessage, error) {
	var data json.RawMessage
	var notFound error

	key := "rpc:" + name
	err := c.breakers.Do(ctx, key, c.settings, func(ctx context.Context) error {
		var callErr error
		data, callErr = guard.Run(ctx, c.timeout, func(ctx context.Context) (json.RawMessage, error) {
			return c.post(ctx, name, args)
		})
		if apperrors.Is(callErr, apperrors.ErrNotFound) {
			// The dependency answered; a missing record must not trip
			// the breaker.
			notFound = callErr
			return nil
		}
		return callErr
	})
	if err == nil {
		err = notFound
	}
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("remote procedure call failed",
				slog.String("procedure", name),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	return data, nil
}

// post performs the actual HTTP request for a procedure call.
func (c *Client) post(ctx context.Context, name string, args any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode rpc arguments")
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build rpc request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, "rpc %s failed", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, apperrors.Wrapf(err, "rpc %s read failed", name)
	}

	if resp.StatusCode == http.StatusNotFound {
		// A missing record is a caller-level outcome, not a dependency
		// failure.
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "rpc %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf("rpc %s returned status %d", name, resp.StatusCode)
	}

	var parsed callResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrapf(err, "rpc %s returned malformed response", name)
	}
	if parsed.Error != nil {
		return nil, apperrors.Newf("rpc %s returned error: %s", name, *parsed.Error)
	}

	return parsed.Data, nil
}
