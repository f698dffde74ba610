package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Pir-CHILD/RTC-Learning/internal/server/middleware"
	"github.com/Pir-CHILD/RTC-Learning/pkg/config"
)

func limiterChain(counter middleware.IPConnectionCounter, maxPerIP int, next http.Handler) http.Handler {
	return middleware.Chain(next,
		middleware.RequestMetadataMiddleware(),
		middleware.NewConnectionLimiter(newTestLogger(), counter, config.ConnectionLimitConfig{MaxPerIP: maxPerIP}),
	)
}

func TestConnectionLimiterDisabledByDefault(t *testing.T) {
	var reached bool
	handler := limiterChain(func(string) int { return 1000 }, 0,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if !reached {
		t.Error("limit 0 must not block any handshake")
	}
}

func TestConnectionLimiterCapsPerIP(t *testing.T) {
	count := 0
	var reached int
	handler := limiterChain(func(ip string) int { return count }, 2,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached++ }))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("handshake under the limit rejected: %d", rec.Code)
		}
		count++
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if reached != 2 {
		t.Errorf("handler ran %d times, want 2", reached)
	}
}
