package shield

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig is a fixed-window per-IP limit. MaxRequests <= 0 disables it.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per client IP in fixed windows.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter creates an in-memory limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimiter{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}
}

// Allow records a request from ip and reports whether it is within the
// limit, plus the time until the window resets.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if rl.cfg.MaxRequests <= 0 {
		return true, 0
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || !now.Before(b.resetAt) {
		if len(rl.buckets) > 10_000 {
			rl.gcLocked(now)
		}
		b = &bucket{resetAt: now.Add(rl.cfg.Window)}
		rl.buckets[ip] = b
	}
	b.count++
	return b.count <= rl.cfg.MaxRequests, b.resetAt.Sub(now)
}

func (rl *RateLimiter) gcLocked(now time.Time) {
	for ip, b := range rl.buckets {
		if !now.Before(b.resetAt) {
			delete(rl.buckets, ip)
		}
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, reset := rl.Allow(clientIP(r))
		if !ok {
			secs := int(reset.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded", "kind": "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
