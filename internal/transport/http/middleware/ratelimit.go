package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"appraisal/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

const clientIdleTTL = 10 * time.Minute

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per key. perMinute sets the refill
// rate and burst the bucket size.
type rateLimiter struct {
	mu        sync.Mutex
	perMinute int
	burst     int
	keyFn     RateLimitKeyFunc
	clients   map[string]*rateClient
	lastSweep time.Time
	now       func() time.Time
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func RateLimit(perMinute, burst int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(perMinute, burst, actorOrIPKey)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies a tighter per-actor budget to
// workflow steps that fan out or finalise state: cycle activation, goal
// approval and rejection, manager submission and resync.
func SensitiveMutationRateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	sensitive := newRateLimiter(max(perMinute/4, 1), max(burst/4, 1), actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSensitiveMutation(r) && !sensitive.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if value := strings.TrimSpace(first); value != "" {
			return value
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func newRateLimiter(perMinute, burst int, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		perMinute: perMinute,
		burst:     burst,
		keyFn:     keyFn,
		clients:   map[string]*rateClient{},
		now:       time.Now,
	}
}

func (rl *rateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > clientIdleTTL {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > clientIdleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}
	c, ok := rl.clients[key]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60), rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.perMinute <= 0 {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	now := rl.now()
	limiter := rl.limiterFor(key, now)
	allowed := limiter.AllowN(now, 1)
	remaining := int(math.Max(0, math.Floor(limiter.TokensAt(now))))

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

	if !allowed {
		retry := int(math.Ceil(60 / float64(rl.perMinute)))
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		slog.Warn("rate limit exceeded",
			"key", key,
			"path", r.URL.Path,
			"method", r.Method,
			"perMinute", rl.perMinute,
			"burst", rl.burst,
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func isSensitiveMutation(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	path := normalizedAPIPath(r.URL.Path)
	switch {
	case strings.HasPrefix(path, "/cycles/") && strings.HasSuffix(path, "/activate"):
		return true
	case strings.HasPrefix(path, "/goals/") && (strings.HasSuffix(path, "/approve") || strings.HasSuffix(path, "/reject")):
		return true
	case strings.HasPrefix(path, "/appraisals/") && (strings.HasSuffix(path, "/manager/submit") || strings.HasSuffix(path, "/resync")):
		return true
	}
	return false
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		return "/" + cleaned
	}
	return cleaned
}
