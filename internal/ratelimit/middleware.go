package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Middleware enforces a limiter on every request it gates, before any
// verification, ingestion, or queue work begins. The caller identity is
// the bearer token when present, otherwise the client IP.
//
// Every gated response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset; 429 responses additionally carry Retry-After.
func Middleware(limiter *Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := callerIdentity(c)
		res := limiter.Allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			if logger != nil {
				logger.Debug("rate limit exceeded",
					slog.String("caller", key),
					slog.Int("retry_after", retryAfter),
				)
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// callerIdentity picks the rate-limit key for a request. Authenticated
// callers are keyed by token so shared egress IPs don't pool their
// budgets; everyone else is keyed by client IP (gin handles
// X-Forwarded-For and X-Real-IP).
func callerIdentity(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return auth
	}
	return c.ClientIP()
}
