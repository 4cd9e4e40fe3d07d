package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"warroom/httputil"
)

// Limiter is a per-IP fixed-window token bucket. It exists to keep the
// AI-backed endpoints (idea/script generation, review, agent chat) from
// burning through chat-completion quota; a single instance is enough for
// a single-process deployment.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // requests per window
	window   time.Duration // refill window
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// New creates a Limiter allowing rate requests per window per client IP.
func New(rate int, window time.Duration) *Limiter {
	l := &Limiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		window:   window,
	}
	// Evict stale entries periodically to prevent unbounded map growth.
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			l.cleanup()
		}
	}()
	return l
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-2 * l.window)
	for ip, b := range l.visitors {
		if b.lastReset.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

// Allow reports whether the given IP is within the rate limit.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.visitors[ip]
	if !exists || now.Sub(b.lastReset) >= l.window {
		l.visitors[ip] = &bucket{tokens: l.rate - 1, lastReset: now}
		return true
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// ClientIP extracts the client IP for rate limiting. Proxy headers are only
// trusted for connections arriving from loopback or private networks, so a
// direct internet client cannot spoof its way past the limit.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			// Only the first entry is set by the outermost proxy.
			if idx := strings.IndexByte(forwarded, ','); idx != -1 {
				return strings.TrimSpace(forwarded[:idx])
			}
			return strings.TrimSpace(forwarded)
		}
	}
	return host
}

// Middleware returns HTTP 429 when the per-IP rate is exceeded.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				httputil.Error(w, 429, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
