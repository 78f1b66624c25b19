package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterStaleAfter = 10 * time.Minute
	limiterSweepEvery = 5 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size. Stale buckets are swept inline
// on the request path, so the middleware owns no goroutine.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		buckets   = make(map[string]*ipLimiter)
		nextSweep = time.Now().Add(limiterSweepEvery)
	)

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		if now.After(nextSweep) {
			cutoff := now.Add(-limiterStaleAfter)
			for k, v := range buckets {
				if v.lastSeen.Before(cutoff) {
					delete(buckets, k)
				}
			}
			nextSweep = now.Add(limiterSweepEvery)
		}
		bkt, ok := buckets[ip]
		if !ok {
			bkt = &ipLimiter{limiter: rate.NewLimiter(r, b)}
			buckets[ip] = bkt
		}
		bkt.lastSeen = now
		return bkt.limiter.Allow()
	}

	return func(c *gin.Context) {
		if !allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
