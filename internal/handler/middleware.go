package handler

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// SecurityHeaders adds security response headers for a JSON-only API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter limits requests per client IP over a sliding one-minute window.
// Idle clients expire from the cache on their own.
type RateLimiter struct {
	maxPerMinute      int
	trustedProxyCount int
	mu                sync.Mutex
	clients           *cache.Cache
	now               func() time.Time
}

// NewRateLimiter creates a rate limiter with the given requests-per-minute limit.
// Assumes a single trusted reverse proxy by default.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	return &RateLimiter{
		maxPerMinute:      maxPerMinute,
		trustedProxyCount: 1,
		clients:           cache.New(time.Minute, 5*time.Minute),
		now:               time.Now,
	}
}

// allow records a request from ip and reports whether it is within the limit.
// When it is not, wait is how long until the oldest request leaves the window.
func (rl *RateLimiter) allow(ip string) (ok bool, wait time.Duration) {
	now := rl.now()
	windowStart := now.Add(-time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var window []time.Time
	if v, found := rl.clients.Get(ip); found {
		window = v.([]time.Time)
	}
	valid := make([]time.Time, 0, len(window)+1)
	for _, ts := range window {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.maxPerMinute {
		rl.clients.Set(ip, valid, cache.DefaultExpiration)
		return false, valid[0].Add(time.Minute).Sub(now)
	}
	rl.clients.Set(ip, append(valid, now), cache.DefaultExpiration)
	return true, 0
}

// Middleware returns an http.Handler that enforces rate limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(rl.clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", retryAfterSeconds(wait))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:   "rate_limited",
				Message: "Too many requests; please slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP extracts the real client IP, reading from the rightmost trusted
// proxy position in X-Forwarded-For to prevent spoofing.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && rl.trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		idx := len(parts) - rl.trustedProxyCount
		if idx >= 0 && idx < len(parts) {
			return strings.TrimSpace(parts[idx])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
