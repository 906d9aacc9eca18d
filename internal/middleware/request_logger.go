package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/utils"
)

// RequestLogger logs every request from the touchscreen shell. The parsed
// user agent identifies which kiosk shell build is driving the terminal,
// which matters when a fleet mixes hardware generations.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		shell := utils.ParseUserAgent(c.Request.UserAgent())

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"shell":      shell.Browser,
			"shell_os":   shell.OS,
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Debug("Request completed")
		}
	}
}
