package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/hydrate/idgen"
	"github.com/hazyhaar/hydrate/kit"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// HeaderRequestID carries the request ID on responses.
const HeaderRequestID = "X-Request-Id"

// RequestID assigns an ID to each request, stores it with kit.WithRequestID
// (transport "http"), echoes it in the X-Request-Id response header and
// attaches a per-request logger retrievable with GetLogger.
func RequestID(gen idgen.Generator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := gen()
			ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
			w.Header().Set(HeaderRequestID, id)

			l := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = context.WithValue(ctx, LoggerKey, l)
			l.Debug("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
