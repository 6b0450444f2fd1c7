package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Rate limit tiers. Analysis is the expensive path, so it gets the
// tightest window.
const (
	generalRate   = 100
	generalWindow = 15 * time.Minute

	analyzeRate   = 10
	analyzeWindow = time.Hour

	statsRate   = 30
	statsWindow = time.Minute
)

// rateLimiter is a per-IP fixed-window limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

// visitor tracks request counts within the current window for one IP.
type visitor struct {
	count       int
	windowStart time.Time
}

// newRateLimiter creates a limiter allowing rate requests per window and
// starts a goroutine that drops stale entries every minute. stop ends
// the cleanup goroutine.
func newRateLimiter(rate int, window time.Duration, stop <-chan struct{}) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-stop:
				return
			}
		}
	}()
	return rl
}

// allow reports whether the IP is still inside its budget.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.windowStart) > rl.window {
		rl.visitors[ip] = &visitor{count: 1, windowStart: now}
		return true
	}
	v.count++
	return v.count <= rl.rate
}

// cleanup removes visitor entries whose window has expired.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for ip, v := range rl.visitors {
		if now.Sub(v.windowStart) > rl.window {
			delete(rl.visitors, ip)
		}
	}
}

// getIP extracts the client IP, respecting X-Forwarded-For for proxied
// deployments.
func getIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
