package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"appraisal/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, 1)(noContent())
	userCtx := WithUser(t.Context(), auth.UserContext{UserID: "user-1", RoleName: auth.RoleHR})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/c1/activate", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/c1/activate", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by user key, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, 1)(noContent())

	first := httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil)
	first.RemoteAddr = "203.0.113.10:4444"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}
	if firstRec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header %q", firstRec.Header().Get("X-RateLimit-Limit"))
	}

	second := httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil)
	second.RemoteAddr = "203.0.113.10:5555"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by ip key, got %d", secondRec.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil)
	other.RemoteAddr = "203.0.113.99:5555"
	otherRec := httptest.NewRecorder()
	limited.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusNoContent {
		t.Fatalf("expected a different client to pass, got %d", otherRec.Code)
	}
}

func TestRateLimitRefills(t *testing.T) {
	rl := newRateLimiter(60, 1, clientIPKey)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.20:1111"

	if !rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected first request to pass")
	}
	if rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected immediate second request to be throttled")
	}
	clock = clock.Add(1100 * time.Millisecond)
	if !rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected request after refill to pass")
	}
}

func TestRateLimitSweepsIdleClients(t *testing.T) {
	rl := newRateLimiter(60, 1, clientIPKey)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for _, addr := range []string{"192.0.2.1:1", "192.0.2.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rl.enforce(httptest.NewRecorder(), req)
	}
	clock = clock.Add(2 * clientIdleTTL)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.3:1"
	rl.enforce(httptest.NewRecorder(), req)

	if len(rl.clients) != 1 {
		t.Fatalf("expected idle clients to be swept, have %d", len(rl.clients))
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, 4)(noContent())
	userCtx := WithUser(t.Context(), auth.UserContext{UserID: "mgr-1", RoleName: auth.RoleManager})

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil).WithContext(userCtx)
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(http.MethodPost, "/api/v1/goals/g1/approve"); code != http.StatusNoContent {
		t.Fatalf("expected first approval to pass, got %d", code)
	}
	if code := send(http.MethodPost, "/api/v1/goals/g2/reject"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second sensitive mutation to be throttled, got %d", code)
	}
	for range 3 {
		if code := send(http.MethodPost, "/api/v1/goals/g1/submit"); code != http.StatusNoContent {
			t.Fatalf("expected non-sensitive route to pass, got %d", code)
		}
	}
	if code := send(http.MethodGet, "/api/v1/cycles/c1/activate"); code != http.StatusNoContent {
		t.Fatalf("expected reads to pass, got %d", code)
	}
}

func TestNormalizedAPIPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/goals/1/approve": "/goals/1/approve",
		"/api/v1":                 "/",
		"goals":                   "/goals",
	}
	for in, want := range cases {
		if got := normalizedAPIPath(in); got != want {
			t.Fatalf("normalizedAPIPath(%q) = %q, want %q", in, got, want)
		}
	}
}
