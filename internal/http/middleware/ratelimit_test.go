package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/doconsult-api/internal/identity"
)

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of 2")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected separate bucket per key")
	}
	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("expected refill after one second")
	}
}

func TestRateLimitKeysByCaller(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	send := func(c *identity.Caller) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if c != nil {
			req = req.WithContext(identity.WithCaller(req.Context(), *c))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send(nil); got != http.StatusOK {
		t.Fatalf("expected first anonymous request to pass, got %d", got)
	}
	if got := send(nil); got != http.StatusTooManyRequests {
		t.Fatalf("expected second anonymous request to be limited, got %d", got)
	}
	caller := identity.Caller{ID: uuid.New(), Role: identity.RolePatient}
	if got := send(&caller); got != http.StatusOK {
		t.Fatalf("expected authenticated caller to get its own bucket, got %d", got)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if h := RateLimit(nil)(next); h == nil {
		t.Fatalf("expected passthrough handler")
	}
}
