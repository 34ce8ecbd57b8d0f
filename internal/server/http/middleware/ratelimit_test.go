package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewRateLimiter(WithMaxRequests(max), WithWindow(window))
	limiter.now = clock.Now
	t.Cleanup(limiter.Close)
	return limiter, clock
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(0), WithWindow(-1))
	defer limiter.Close()

	if limiter.Limit() != DefaultMaxRequests {
		t.Errorf("Limit() = %d, want %d", limiter.Limit(), DefaultMaxRequests)
	}
	if limiter.window != DefaultWindow {
		t.Errorf("window = %v, want %v", limiter.window, DefaultWindow)
	}
}

func TestAllow_PerKeyLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute)

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if limiter.Allow("a") {
		t.Error("third request should be denied")
	}
	if !limiter.Allow("b") {
		t.Error("other key should have its own budget")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	limiter, clock := newTestLimiter(t, 1, time.Minute)

	if !limiter.Allow("a") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("a") {
		t.Fatal("second request should be denied")
	}

	clock.Advance(61 * time.Second)
	if !limiter.Allow("a") {
		t.Error("request after the window should be allowed")
	}
}

func TestRemaining(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)

	if got := limiter.Remaining("a"); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}
	limiter.Allow("a")
	if got := limiter.Remaining("a"); got != 2 {
		t.Errorf("Remaining() = %d, want 2", got)
	}
}

func TestCleanup(t *testing.T) {
	limiter, clock := newTestLimiter(t, 1, time.Minute)
	limiter.Allow("a")

	clock.Advance(3 * time.Minute)
	limiter.cleanup()

	limiter.mu.Lock()
	n := len(limiter.buckets)
	limiter.mu.Unlock()
	if n != 0 {
		t.Errorf("buckets = %d after cleanup, want 0", n)
	}
}

func TestConcurrentAllow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("a") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"10.0.0.1", "10.0.0.1"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/poll", nil)
		req.RemoteAddr = tt.remoteAddr
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		if got := IPKeyExtractor(req); got != tt.want {
			t.Errorf("IPKeyExtractor(%s) = %s, want %s", tt.remoteAddr, got, tt.want)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	handler := RateLimitMiddleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/poll", nil)
		req.RemoteAddr = "127.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do()
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("rate limit headers = %v", rec.Header())
	}

	rec = do()
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}
