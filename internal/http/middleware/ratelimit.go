// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the per-client token-bucket limiter. Buckets live in
// process memory, keyed by client IP, and idle ones are swept periodically
// while the limiter is in use. The limit is process-local; several replicas
// each enforce their own.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-accounts-backend/internal/errs"
)

// rateLimited counts requests rejected by the limiter.
var rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "http_rate_limited_total",
	Help: "Total number of requests rejected with 429.",
})

func init() {
	prometheus.MustRegister(rateLimited)
}

const (
	defaultIdleTTL    = 10 * time.Minute
	defaultSweepEvery = 5000
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByIP buckets requests by client IP, e.g. "ip:203.0.113.7". Gin's
// ClientIP honours the engine's trusted proxies.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out one token bucket per key. Safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   keyFunc

	idleTTL    time.Duration
	sweepEvery int
	now        func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (values <= 0 become 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		key:        keyFn,
		idleTTL:    defaultIdleTTL,
		sweepEvery: defaultSweepEvery,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// bucketFor returns the limiter for key, creating it when absent. Every
// sweepEvery lookups, buckets idle for idleTTL are dropped first, so a stale
// bucket is never refreshed by the lookup that should evict it.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= rl.sweepEvery {
		rl.sweepLocked(now)
		rl.lookups = 0
	}

	b, found := rl.buckets[key]
	if !found {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for k, b := range rl.buckets {
		if now.Sub(b.seen) >= rl.idleTTL {
			delete(rl.buckets, k)
		}
	}
}

// Len reports how many buckets are currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay, which the limiter lets through without spending a token.
func IsRateBypass(c *gin.Context) bool {
	v, found := c.Get(ctxKeyRateBypass)
	if !found {
		return false
	}
	b, _ := v.(bool)
	return b
}

// retryAfter renders a wait as whole seconds, at least 1.
func retryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Handler returns the Gin middleware. A request that would have to wait for
// a token is rejected with 429 and a Retry-After telling the client how long;
// the reservation is cancelled so the rejection costs nothing.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		res := rl.bucketFor(rl.key(c)).ReserveN(rl.now(), 1)
		if res.OK() {
			wait := res.DelayFrom(rl.now())
			if wait == 0 {
				c.Next()
				return
			}
			res.Cancel()
			c.Header("Retry-After", retryAfter(wait))
		} else {
			c.Header("Retry-After", "1")
		}

		rateLimited.Inc()
		Abort(c, errs.NewTooManyRequests("rate limit exceeded"))
	}
}
