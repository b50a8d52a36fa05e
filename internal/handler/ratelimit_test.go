package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/domainverify/domainverify/internal/handler"
)

func setupRateLimitedRouter(cfg handler.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RateLimiter(cfg))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/ping", ok)
	r.GET("/healthz", ok)
	return r
}

func doGet(r *gin.Engine, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:4242"
	if apiKey != "" {
		req.Header.Set(handler.APIKeyHeader, apiKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_blocksAfterBurst(t *testing.T) {
	r := setupRateLimitedRouter(handler.RateLimitConfig{RPS: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		if w := doGet(r, "/ping", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d within burst: got %d", i+1, w.Code)
		}
	}

	w := doGet(r, "/ping", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over-burst request: got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}

func TestRateLimiter_apiKeysBucketIndependently(t *testing.T) {
	r := setupRateLimitedRouter(handler.RateLimitConfig{RPS: 1, Burst: 1})

	if w := doGet(r, "/ping", "dv_key_a"); w.Code != http.StatusOK {
		t.Fatalf("first request for key a: got %d", w.Code)
	}
	if w := doGet(r, "/ping", "dv_key_a"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("key a over budget: got %d, want 429", w.Code)
	}
	// Same source IP, different credential: a fresh bucket.
	if w := doGet(r, "/ping", "dv_key_b"); w.Code != http.StatusOK {
		t.Errorf("key b must not share key a's bucket: got %d", w.Code)
	}
	// And so is the anonymous IP bucket.
	if w := doGet(r, "/ping", ""); w.Code != http.StatusOK {
		t.Errorf("ip bucket must not share key buckets: got %d", w.Code)
	}
}

func TestRateLimiter_exemptPaths(t *testing.T) {
	r := setupRateLimitedRouter(handler.RateLimitConfig{
		RPS:         1,
		Burst:       1,
		ExemptPaths: []string{"/healthz"},
	})

	for i := 0; i < 5; i++ {
		if w := doGet(r, "/healthz", ""); w.Code != http.StatusOK {
			t.Fatalf("exempt path limited on request %d: got %d", i+1, w.Code)
		}
	}
}
