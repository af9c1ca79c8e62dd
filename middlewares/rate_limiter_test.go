package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(LimiterConfig{Name: "test", RPS: 1, Burst: 1, IdleTTL: time.Minute})
	t.Cleanup(rl.Close)

	s := gin.New()
	s.Use(rl.Middleware(func(c *gin.Context) string { return "k" }))
	s.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w1 := httptest.NewRecorder()
	s.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	s.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRateLimiter_KeysHaveSeparateBuckets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(LimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	t.Cleanup(rl.Close)

	s := gin.New()
	s.Use(rl.Middleware(func(c *gin.Context) string { return c.Query("k") }))
	s.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, k := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?k="+k, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("key %s got %d", k, w.Code)
		}
	}
}

func TestRateLimiter_SlowRefillSetsLongerRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(LimiterConfig{RPS: 0.5, Burst: 1, IdleTTL: time.Minute})
	t.Cleanup(rl.Close)

	s := gin.New()
	s.Use(rl.Middleware(ByClientIP("login")))
	s.POST("/login", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "2" {
		t.Fatalf("code=%d Retry-After=%q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_SweepDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(LimiterConfig{RPS: 1, Burst: 1, IdleTTL: 20 * time.Millisecond})
	t.Cleanup(rl.Close)

	rl.getLimiter("idle")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rl.mu.Lock()
		n := len(rl.buckets)
		rl.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("idle bucket was not swept")
}
