package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	rl.now = c.Now
	t.Cleanup(rl.Stop)
	return rl, c
}

func TestAllow(t *testing.T) {
	rl, c := newTestLimiter(t, 3)

	for i := range 3 {
		if !rl.Allow("u1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("u1") {
		t.Fatal("fourth request in the window allowed")
	}
	if !rl.Allow("u2") {
		t.Fatal("keys must be limited independently")
	}

	// Steady traffic does not extend the window.
	c.Advance(30 * time.Second)
	if rl.Allow("u1") {
		t.Fatal("allowed before the window reset")
	}
	c.Advance(30 * time.Second)
	if !rl.Allow("u1") {
		t.Fatal("rejected after the window reset")
	}

	if got := rl.GetMetrics(); got.TotalHits != 2 || got.ClientCount != 2 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, c := newTestLimiter(t, 10)
	rl.Allow("old")
	c.Advance(11 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed %d entries", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active clients = %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, c := newTestLimiter(t, 1)
	h := rl.Middleware(func(r *http.Request) string { return r.Header.Get("X-User") }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/goals", nil)
		req.Header.Set("X-User", "u1")
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := do(); rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rr.Code)
	}
	c.Advance(15 * time.Second)
	rr := do()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("Retry-After = %q, want 45", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
