package httpmiddleware

import (
	"fmt"
	"net/http"
	"time"

	"file-organizer/backend/go/pkg/logger"
	"file-organizer/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Requests are keyed by client IP.
func RateLimit(limiter ratelimiter.KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.AllowKey(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests",
				"error":   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		msg := fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error(msg)
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", fmt.Sprint(r)).Error(fmt.Sprintf("panic serving %s", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Internal server error",
					"error":   fmt.Sprint(r),
				})
			}
		}()
		c.Next()
	}
}
