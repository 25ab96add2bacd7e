// Package middleware holds the gin middleware of the HTTP server runtime:
// correlation ids, access logs, panic recovery, metrics, rate limiting and
// security headers.
//
// API handlers never see gin. What they need from this layer travels on the
// request itself: the correlation id in the X-Request-ID response header and
// a request-scoped zerolog logger in c.Request.Context().
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDHeader   = "X-Request-ID"
	loggerKey         = "logger"
	maxQueryLogLength = 2048
)

// errorBody mirrors the API error envelope so failures raised by middleware
// look the same as those raised by handlers.
type errorBody struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// abortWithError stops the chain with status and the standard envelope.
func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{
		RequestID: requestIDOf(c),
		Code:      code,
		Message:   msg,
	})
}

// RequestID reuses an inbound X-Request-ID or mints a UUID, and sets it on
// the response. Everything downstream reads it from there.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger emits one access log line per request. Handlers get a logger
// carrying request_id, method and route.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := log.With().
			Str("request_id", requestIDOf(c)).
			Str("method", c.Request.Method).
			Str("route", routeOf(c)).
			Logger()
		attachLogger(c, &l)

		c.Next()

		ev := outcomeEvent(&l, c).
			Str("path", c.Request.URL.Path).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("status", c.Writer.Status()).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start))
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// Recovery turns a panic into a logged stack trace and, when nothing was
// written yet, a 500 in the API error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", requestIDOf(c)).
				Msg("panic recovered")
			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			abortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// LoggerFrom returns the logger attached by Logger or RedactingLogger, or
// the global logger when neither ran.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if lg, ok := c.Value(loggerKey).(*zerolog.Logger); ok {
		return lg
	}
	l := log.With().Logger()
	return &l
}

func attachLogger(c *gin.Context, l *zerolog.Logger) {
	c.Set(loggerKey, l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// outcomeEvent picks the access log level: error for 5xx or recorded gin
// errors, warn for 4xx, info otherwise.
func outcomeEvent(l *zerolog.Logger, c *gin.Context) *zerolog.Event {
	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError, len(c.Errors) > 0:
		return l.Error()
	case status >= http.StatusBadRequest:
		return l.Warn()
	default:
		return l.Info()
	}
}

// routeOf is the matched route pattern, or "unmatched" for 404s, so log
// lines group the same way as the metrics.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedPath
}

// requestIDOf prefers the id set on the response by RequestID and falls
// back to the inbound header.
func requestIDOf(c *gin.Context) string {
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}

// truncate caps s at n bytes; n <= 0 disables it.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
