package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// scrapePath is polled by Prometheus every few seconds. Logging each poll
// and counting the scraper in its own metrics buries the requests an
// operator actually cares about.
const scrapePath = "/metrics"

// RequestLogger logs one structured line per admin HTTP request, escalating
// the level on 4xx/5xx responses. Scrapes are not logged.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := requestPath(c)
		if path == scrapePath {
			return
		}

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("admin_request")
	}
}

// RequestMetricsMiddleware records request count and duration per route,
// excluding the scrape endpoint itself.
func RequestMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := requestPath(c)
		if path == scrapePath {
			return
		}

		RecordHTTPRequest(service, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// requestPath prefers the route template so unmatched garbage paths don't
// explode the label space.
func requestPath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
