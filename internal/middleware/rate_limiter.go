package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shortreel/backend/internal/logging"
)

// RateLimiter decides whether the caller identified by key may proceed. The
// returned duration is how long the caller should wait when denied.
type RateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key and forgets idle keys.
type KeyedLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewKeyedLimiter allows up to requests events per window for each key, with
// burst extra capacity. Keys unused for idle are dropped.
func NewKeyedLimiter(requests int, window time.Duration, burst int, idle time.Duration) *KeyedLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 5 * time.Minute
	}

	return &KeyedLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow consumes a token for key when one is available.
func (l *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	for k, other := range l.visitors {
		if now.Sub(other.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}

	reservation := v.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Duration(math.MaxInt64)
	}
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

// SetNowFunc overrides the time source. Useful for tests.
func (l *KeyedLimiter) SetNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// RateLimit rejects requests with 429 once the client's IP exceeds limiter
// for scope. A nil limiter disables the check.
func RateLimit(limiter RateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + ClientIP(r)
			allowed, wait := limiter.Allow(key)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context()).Warn("rate limit exceeded", slog.String("scope", scope))
			if wait > 0 && wait < 24*time.Hour {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
		})
	}
}

// ClientIP returns the host of r.RemoteAddr. Forwarded headers are not read
// here; behind a trusted proxy the router runs chi's RealIP first, which
// rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

var _ RateLimiter = (*KeyedLimiter)(nil)
