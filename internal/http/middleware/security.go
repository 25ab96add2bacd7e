package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects the optional security headers. The same set is
// sent by the gin server and attached to Lambda replies.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security, and only over HTTPS.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks responses uncacheable; query results are never cached.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

// defaultHSTSMaxAge applies when HSTSMaxAge is unset.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// Headers returns the security headers for one response. https reports
// whether the request reached the service over TLS; HSTS is only emitted
// when it did.
//
//   - Always: X-Content-Type-Options, X-Frame-Options, Referrer-Policy
//   - EnablePolicy: Permissions-Policy, X-Permitted-Cross-Domain-Policies
//   - NoStore: Cache-Control, Pragma, Expires
//   - EnableHSTS && https: Strict-Transport-Security
func (o SecurityOptions) Headers(https bool) map[string]string {
	h := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	if o.EnablePolicy {
		h["Permissions-Policy"] = "geolocation=(), microphone=(), camera=(), payment=()"
		h["X-Permitted-Cross-Domain-Policies"] = "none"
	}
	if o.NoStore {
		h["Cache-Control"] = "no-store"
		h["Pragma"] = "no-cache"
		h["Expires"] = "0"
	}
	if o.EnableHSTS && https {
		maxAge := o.HSTSMaxAge
		if maxAge <= 0 {
			maxAge = defaultHSTSMaxAge
		}
		h["Strict-Transport-Security"] = "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"
	}
	return h
}

// SecurityHeaders sets opt.Headers on every response and, once a request id
// is present, lists X-Request-ID in Access-Control-Expose-Headers so
// browser clients can quote it in bug reports.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range opt.Headers(isHTTPS(c.Request)) {
			h.Set(k, v)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	switch cur := h.Get(key); {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}

// isHTTPS trusts TLS on the connection or X-Forwarded-Proto from a proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
