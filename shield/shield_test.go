package shield

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/hydrate/kit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultHeaders())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
}

func TestSecurityHeaders_SkipsEmpty(t *testing.T) {
	h := SecurityHeaders(HeaderConfig{XContentTypeOptions: "nosniff"})(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "" {
		t.Error("empty header value should not be set")
	}
}

func TestRequestID(t *testing.T) {
	var gotID, gotTransport string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = kit.GetRequestID(r.Context())
		gotTransport = kit.GetTransport(r.Context())
		if GetLogger(r.Context()) == nil {
			t.Error("expected a request logger")
		}
	})
	h := RequestID(func() string { return "req_fixed" }, slog.New(slog.NewTextHandler(io.Discard, nil)))(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/decode", nil))

	if gotID != "req_fixed" {
		t.Errorf("context id: got %q", gotID)
	}
	if gotTransport != "http" {
		t.Errorf("transport: got %q", gotTransport)
	}
	if rec.Header().Get(HeaderRequestID) != "req_fixed" {
		t.Errorf("header: got %q", rec.Header().Get(HeaderRequestID))
	}
}

func TestRateLimiter_Window(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxRequests: 2, Window: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := range 2 {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, reset := rl.Allow("10.0.0.1")
	if ok {
		t.Fatal("third request should be limited")
	}
	if reset != time.Minute {
		t.Errorf("reset: got %v", reset)
	}
	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Error("other IP should have its own bucket")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Error("new window should pass")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	for range 100 {
		if ok, _ := rl.Allow("x"); !ok {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	h := NewRateLimiter(RateLimitConfig{MaxRequests: 1, Window: time.Minute}).Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/decode", nil)
	req.RemoteAddr = "192.0.2.1:4444"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After")
	}
}

func TestAPIStack(t *testing.T) {
	if n := len(APIStack(Config{})); n != 2 {
		t.Errorf("without rate limit: got %d middlewares", n)
	}
	if n := len(APIStack(Config{RateLimit: RateLimitConfig{MaxRequests: 5}})); n != 3 {
		t.Errorf("with rate limit: got %d middlewares", n)
	}
}
