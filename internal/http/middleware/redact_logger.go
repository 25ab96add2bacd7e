package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

// Patterns are applied in this order; the UUID pattern runs before the phone
// pattern, which would otherwise eat its digit groups.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced wholesale, in addition to Authorization,
	// Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
	// MaskParams are query parameters whose values are replaced wholesale,
	// e.g. the person-name filter of the user listing.
	MaskParams []string
}

// RedactingLogger is Logger for deployments where access logs must not
// carry personal data. Query values and headers are logged with emails,
// phone numbers and UUIDs scrubbed; masked headers and parameters are
// dropped entirely. Bodies are never logged.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	headers := lowerSet(append([]string{"Authorization", "Cookie", "Set-Cookie"}, opts.MaskHeaders...))
	params := lowerSet(opts.MaskParams)

	return func(c *gin.Context) {
		start := time.Now()
		l := log.With().
			Str("request_id", requestIDOf(c)).
			Str("method", c.Request.Method).
			Str("route", routeOf(c)).
			Logger()
		attachLogger(c, &l)

		c.Next()

		outcomeEvent(&l, c).
			Interface("query", scrubValues(c.Request.URL.Query(), params)).
			Interface("headers", scrubValues(url.Values(c.Request.Header), headers)).
			Int("status", c.Writer.Status()).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// scrubValues flattens vv into a loggable map, masking keys in mask and
// pattern-redacting the rest.
func scrubValues(vv url.Values, mask map[string]struct{}) map[string]string {
	out := make(map[string]string, len(vv))
	for k, v := range vv {
		if _, ok := mask[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = redact(strings.Join(v, ", "))
	}
	return out
}

func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
