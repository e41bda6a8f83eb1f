// CLAUDE:SUMMARY HTTP hardening middleware for the decode API: security headers, request IDs with per-request loggers, per-IP rate limiting.
// Package shield provides the HTTP middleware stack in front of the hydrate
// API.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(shield.Config{}) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/hydrate/idgen"
)

// Config configures APIStack.
type Config struct {
	Headers   HeaderConfig
	RateLimit RateLimitConfig
	IDs       idgen.Generator // default: "req_" + NanoID(12)
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Headers == (HeaderConfig{}) {
		c.Headers = DefaultHeaders()
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.IDs == nil {
		c.IDs = idgen.Prefixed("req_", idgen.NanoID(12))
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// APIStack returns the middleware chain, outermost first:
// SecurityHeaders → RequestID → rate limiter (when MaxRequests > 0).
func APIStack(cfg Config) []func(http.Handler) http.Handler {
	cfg.defaults()
	stack := []func(http.Handler) http.Handler{
		SecurityHeaders(cfg.Headers),
		RequestID(cfg.IDs, cfg.Logger),
	}
	if cfg.RateLimit.MaxRequests > 0 {
		stack = append(stack, NewRateLimiter(cfg.RateLimit).Middleware)
	}
	return stack
}
