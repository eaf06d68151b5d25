package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per Window.
	Max    int
	Window time.Duration
	// KeyFunc picks the bucket for a request. Nil means the client IP.
	KeyFunc func(*http.Request) string
}

// window counts requests in the current fixed window and remembers the
// count of the one before it.
type window struct {
	start    time.Time
	count    float64
	previous float64
}

// rateLimiter approximates a sliding window by weighting the previous fixed
// window by the share of it that still overlaps [now-Window, now].
type rateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	entries map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	return &rateLimiter{cfg: cfg, entries: make(map[string]*window)}
}

// allow records a request for key at now if the key has budget left.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.entries[key]
	if !ok {
		w = &window{start: now}
		rl.entries[key] = w
	}
	if age := now.Sub(w.start); age >= rl.cfg.Window {
		// Only the window right before the new one carries weight.
		w.previous = 0
		if age < 2*rl.cfg.Window {
			w.previous = w.count
		}
		w.count = 0
		w.start = now.Truncate(rl.cfg.Window)
	}

	overlap := max(0, 1-now.Sub(w.start).Seconds()/rl.cfg.Window.Seconds())
	used := w.previous*overlap + w.count
	resetAt = w.start.Add(rl.cfg.Window)
	if used >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}

	w.count++
	return max(0, int(float64(rl.cfg.Max)-used-1)), resetAt, true
}

// cleanup drops keys idle for two windows; their state no longer matters.
func (rl *rateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.entries {
		if now.Sub(w.start) >= 2*rl.cfg.Window {
			delete(rl.entries, key)
		}
	}
}

func (rl *rateLimiter) startCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * rl.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()
}

// RateLimit enforces a per-key request budget. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset; rejected
// requests get 429 with Retry-After. Idle keys are never evicted, see
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a goroutine, stopped by ctx, that
// evicts idle keys.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	rl.startCleanup(ctx)
	return rl.middleware()
}

func (rl *rateLimiter) middleware() Middleware {
	limit := strconv.Itoa(rl.cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, allowed := rl.allow(rl.cfg.KeyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if !allowed {
				wait := max(0, time.Until(resetAt))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CustomerKey limits per customer identity, falling back to the client IP for
// anonymous requests such as health checks.
func CustomerKey(r *http.Request) string {
	if customer := r.Header.Get(CustomerHeader); customer != "" {
		return "customer:" + customer
	}
	return "ip:" + defaultKeyFunc(r)
}

// defaultKeyFunc returns the client IP: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote address.
func defaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
