package server

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a source bucket may sit unused before cleanup.
const limiterIdle = 10 * time.Minute

// sourceLimiter keeps one token bucket per source IP so a single flooding
// client cannot starve the task queue. A zero pps disables limiting.
type sourceLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	pps     rate.Limit
	burst   int
}

type bucket struct {
	lim  *rate.Limiter
	last time.Time
}

func newSourceLimiter(pps float64, burst int) *sourceLimiter {
	return &sourceLimiter{
		buckets: make(map[string]*bucket),
		pps:     rate.Limit(pps),
		burst:   burst,
	}
}

// Allow reports whether a datagram from addr may proceed.
func (l *sourceLimiter) Allow(addr net.Addr) bool {
	if l.pps <= 0 {
		return true
	}
	ip := addr.String()
	if udp, ok := addr.(*net.UDPAddr); ok {
		ip = udp.IP.String()
	}

	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.pps, l.burst)}
		l.buckets[ip] = b
	}
	b.last = time.Now()
	l.mu.Unlock()

	return b.lim.Allow()
}

// CleanupIdle drops buckets not used within maxIdle and returns how many
// were removed.
func (l *sourceLimiter) CleanupIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ip, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, ip)
			removed++
		}
	}
	return removed
}
