package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = 10 * time.Minute
	idleCutoff    = 30 * time.Minute
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
}

func (c *clientLimiters) get(key string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = cl
	}
	cl.lastAccess = now
	return cl.limiter
}

func (c *clientLimiters) sweep(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, cl := range c.clients {
		if cl.lastAccess.Before(cutoff) {
			delete(c.clients, key)
		}
	}
}

// clientKey strips the port so every connection from one host shares a
// bucket.
func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// RateLimitByIP applies per-client rate limiting to the local API. It keys on
// the host of r.RemoteAddr, so mount it after chi's RealIP. Idle entries are
// swept every 10 minutes until ctx is done.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int, logger zerolog.Logger) func(http.Handler) http.Handler {
	limiters := &clientLimiters{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiters.sweep(now.Add(-idleCutoff))
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r.RemoteAddr)
			if !limiters.get(key, time.Now()).Allow() {
				logger.Warn().Str("client", key).Str("path", r.URL.Path).Msg("request throttled")
				w.Header().Set("Content-Type", "application/problem+json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
