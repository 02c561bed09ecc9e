package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context keys the message route sets for the request logger.
const (
	KeyMessageKind = "hostlink.kind"
	KeyAuth        = "hostlink.auth"
	KeyListeners   = "hostlink.listeners"
)

// Token outcomes recorded under KeyAuth.
const (
	AuthOpen   = "open"
	AuthOK     = "ok"
	AuthDenied = "denied"
)

// DropUnauthorized counts posted messages refused for a bad or missing token.
const DropUnauthorized = "unauthorized"

// RequestLogger writes one line per request. Message posts also carry the
// message kind, the token outcome and how many listeners saw the message.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			event = logger.Warn()
		case status >= 400:
			event = logger.Info()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("route", route(c)).
			Int("status", status).
			Dur("took", time.Since(start)).
			Str("origin", c.GetHeader("Origin"))
		if kind := c.GetString(KeyMessageKind); kind != "" {
			event = event.Str("kind", kind)
		}
		if outcome := c.GetString(KeyAuth); outcome != "" {
			event = event.Str("auth", outcome)
		}
		if _, ok := c.Get(KeyListeners); ok {
			event = event.Int("listeners", c.GetInt(KeyListeners))
		}
		event.Msg("link_request")
	}
}

func RequestMetricsMiddleware(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		RecordHTTPRequest(node, c.Request.Method, route(c), c.Writer.Status(), time.Since(start))
		if c.GetString(KeyAuth) == AuthDenied {
			RecordDrop(DropUnauthorized)
		}
	}
}

func route(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
