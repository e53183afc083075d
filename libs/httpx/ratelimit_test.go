package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("over limit: expected 429, got %d", code)
	}

	// Other clients have their own window.
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("distinct client: expected 200, got %d", code)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request in the same window should be blocked")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.allow("10.0.0.1") {
		t.Fatal("request after the window elapsed should pass")
	}
}
