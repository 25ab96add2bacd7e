package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	// RPS is the sustained per-client request rate.
	RPS float64
	// Burst is the bucket size. Values below 1 become 1.
	Burst int
	// Exempt paths are never limited and take no tokens.
	Exempt []string
	// IdleTTL drops the bucket of a client not seen for this long.
	// Zero means ten minutes.
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per client IP. It is process-local, so
// each Lambda instance or server replica limits on its own.
type RateLimiter struct {
	opts   RateLimitOptions
	exempt map[string]struct{}
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	exempt := make(map[string]struct{}, len(opts.Exempt))
	for _, p := range opts.Exempt {
		exempt[p] = struct{}{}
	}
	return &RateLimiter{
		opts:      opts,
		exempt:    exempt,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// limiter returns the bucket for client. Idle buckets are swept at most once
// per IdleTTL, before the lookup, so a stale bucket is replaced and not
// refreshed.
func (rl *RateLimiter) limiter(client string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.opts.IdleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.opts.IdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[client]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(rl.opts.RPS), rl.opts.Burst)}
		rl.buckets[client] = b
	}
	b.seen = now
	return b.lim
}

// Handler answers clients over their rate with 429, the API error envelope
// and a Retry-After of the seconds until the next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.limiter(c.ClientIP(), now).ReserveN(now, 1)
		wait := res.DelayFrom(now)
		if res.OK() && wait == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		c.Header("Retry-After", strconv.Itoa(retryAfter(wait)))
		abortWithError(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}

// retryAfter rounds wait up to whole seconds, between 1 and 60.
func retryAfter(wait time.Duration) int {
	if wait >= time.Minute {
		return 60
	}
	return max(1, int(math.Ceil(wait.Seconds())))
}
