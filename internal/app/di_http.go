package app

import (
	"context"
	"fmt"

	"github.com/JSONbored/claudepro-directory-sub000/internal/http"
	"github.com/JSONbored/claudepro-directory-sub000/internal/ratelimit"
)

// HTTPServer returns the API HTTP server instance. ctx bounds the
// lifetime of the rate limiter housekeeping goroutines.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// initHTTPServer creates the API HTTP server with all its dependencies.
func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	webhookHandler, err := c.WebhookHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook handler for http server: %w", err)
	}

	queueHandler, err := c.QueueHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue handler for http server: %w", err)
	}

	serverConfig := http.Config{
		Host:             c.config.ServerHost,
		Port:             c.config.ServerPort,
		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
		MetricsNamespace: c.config.MetricsNamespace,
	}

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		serverConfig.MeterProvider = provider.MeterProvider()
	}

	return http.NewServer(
		serverConfig,
		db,
		webhookHandler,
		queueHandler,
		c.initRateLimiters(ctx),
		c.Logger(),
	), nil
}

// initRateLimiters builds the per-preset limiters. Disabled rate
// limiting leaves every limiter nil, which the server treats as ungated.
func (c *Container) initRateLimiters(ctx context.Context) http.Limiters {
	if !c.config.RateLimitEnabled {
		return http.Limiters{}
	}

	return http.Limiters{
		Public: ratelimit.NewLimiter(ctx, ratelimit.Preset{
			MaxRequests: c.config.RateLimitPublicMax,
			Window:      c.config.RateLimitPublicWindow,
		}),
		Heavy: ratelimit.NewLimiter(ctx, ratelimit.Preset{
			MaxRequests: c.config.RateLimitHeavyMax,
			Window:      c.config.RateLimitHeavyWindow,
		}),
		Trigger: ratelimit.NewLimiter(ctx, ratelimit.Preset{
			MaxRequests: c.config.RateLimitTriggerMax,
			Window:      c.config.RateLimitTriggerWindow,
		}),
	}
}

// initMetricsServer creates the metrics server. Returns nil without
// error when metrics are disabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
