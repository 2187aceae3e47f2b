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

// keyFunc maps a request to the identity of its token bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP keys buckets on gin's ClientIP (honouring trusted proxies),
// prefixed with "ip:".
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local, per-key token bucket guarding the whole
// API against bursts (each translate call costs a model request). It is not
// the email gate: that limiter lives in the ratelimit package and is shared
// through the durable store.
//
// Idle buckets are evicted opportunistically every gcEvery lookups.
type RateLimiter struct {
	rps        rate.Limit
	burst      int
	keyFn      keyFunc
	retryAfter string

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64
}

const gcEvery = 5000

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	wait := 1
	if rps > 0 {
		wait = int(math.Max(1, math.Ceil(1/rps)))
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		keyFn:      keyFn,
		retryAfter: strconv.Itoa(wait),
		visitors:   make(map[string]*visitor),
		ttl:        10 * time.Minute,
	}
}

// getVisitor returns the bucket for key. Eviction runs before the lookup so
// a stale bucket is dropped even when it is the one requested.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= gcEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator found a stored replay
// for this request; replays do not spend tokens.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit. Denied requests get 429 with Retry-After set
// to the time one token takes to refill:
//
//	{"request_id": "...", "code": "too_many_requests", "error": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		SetErrorCode(c, "too_many_requests")
		c.Header("Retry-After", rl.retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"error":      "rate limit exceeded",
		})
	}
}
