package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Stale client buckets are swept opportunistically from allow(): a client
// idle longer than staleAfter is dropped during the next sweep, so the map
// stays bounded without a background goroutine.
const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

// rateLimiter keeps one token bucket per client IP. A bucket starts full
// at `burst` tokens and refills at `refill` tokens per second, so a short
// burst of questions is fine but sustained hammering is throttled.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	refill    rate.Limit
	burst     int
	lastSweep time.Time
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(refill float64, burst int) *rateLimiter {
	return &rateLimiter{
		clients:   make(map[string]*client),
		refill:    rate.Limit(refill),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// allow consumes one token from the bucket for ip, creating a full bucket
// on first sight.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > sweepEvery {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > staleAfter {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[ip]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.refill, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.bucket.Allow()
}

// rateLimitMiddleware rejects requests from clients that have exhausted
// their token bucket with 429 and a Retry-After hint.
func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !rl.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the key the limiter buckets on.
//
// Behind the authenticating reverse proxy (trustProxy true), the proxy's
// X-Real-IP, then the first X-Forwarded-For entry, names the real client;
// values are validated with net.ParseIP so a forged header cannot smuggle
// arbitrary strings into the bucket map. Directly exposed (trustProxy
// false), only RemoteAddr is believed.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
