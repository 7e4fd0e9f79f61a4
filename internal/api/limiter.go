package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// client holds a per-IP rate limiter and the time it was last seen.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter is a token bucket per client IP. Entries are only removed by
// Sweep, which the scheduler calls periodically.
type ipLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*client),
	}
}

// Allow consumes one token from ip's bucket.
func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, found := l.clients[ip]
	if !found {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Sweep forgets clients not seen for maxIdle and returns how many remain.
func (l *ipLimiter) Sweep(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, c := range l.clients {
		if time.Since(c.lastSeen) > maxIdle {
			delete(l.clients, ip)
		}
	}
	return len(l.clients)
}
