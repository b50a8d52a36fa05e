package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-caller rate limiting middleware.
type RateLimitConfig struct {
	RPS           int           // steady-state requests per second per caller
	Burst         int           // maximum burst size per caller
	SweepInterval time.Duration // how often stale buckets are dropped
	Staleness     time.Duration // idle time after which a bucket is stale
	ExemptPaths   []string      // exact paths that bypass limiting (health, metrics)
}

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns a Gin middleware enforcing token-bucket rate limits
// per caller. API consumers are bucketed by their X-API-Key value so one
// integration behind a NAT cannot starve another; everyone else is bucketed
// by client IP. The raw key is held only as a map key and never logged.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RPS * 2
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.Staleness <= 0 {
		cfg.Staleness = 2 * cfg.SweepInterval
	}

	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}

	var mu sync.Mutex
	limiters := make(map[string]*callerLimiter)

	go func() {
		for {
			time.Sleep(cfg.SweepInterval)
			mu.Lock()
			for key, l := range limiters {
				if time.Since(l.lastSeen) > cfg.Staleness {
					delete(limiters, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		mu.Lock()
		key := callerKey(c)
		l, ok := limiters[key]
		if !ok {
			l = &callerLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[key] = l
		}
		l.lastSeen = time.Now()
		mu.Unlock()

		if !l.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// callerKey identifies the bucket a request draws from. The header value is
// used before validation; an invalid key still only ever drains its own
// bucket.
func callerKey(c *gin.Context) string {
	if k := c.GetHeader(APIKeyHeader); k != "" {
		return "key:" + k
	}
	return "ip:" + c.ClientIP()
}
