package middleware

import (
	"context"
	"strings"

	"github.com/erp/websync/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingLabels attaches method and route pattern pprof labels to the
// request goroutine so Pyroscope profiles can be split per endpoint.
// Requests matching skipPrefixes, and unmatched routes, run unlabelled.
func ProfilingLabels(enabled bool, skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if !enabled || route == "" || hasAnyPrefix(c.Request.URL.Path, skipPrefixes) {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelMethod: c.Request.Method,
			telemetry.ProfilingLabelRoute:  route,
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
