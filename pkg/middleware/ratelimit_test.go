package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func serveOnce(t *testing.T, rl *RateLimiter, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r := httptest.NewRequest("GET", "/api/settlements", nil)
	r.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	defer rl.Shutdown()

	assert.Equal(t, http.StatusOK, serveOnce(t, rl, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, serveOnce(t, rl, "10.0.0.1:1234").Code)

	w := serveOnce(t, rl, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1, zap.NewNop())
	defer rl.Shutdown()

	assert.Equal(t, http.StatusOK, serveOnce(t, rl, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, serveOnce(t, rl, "10.0.0.1:1234").Code)

	// a different source address has its own bucket
	assert.Equal(t, http.StatusOK, serveOnce(t, rl, "10.0.0.2:1234").Code)
}

func TestRateLimiter_EvictsAtCapacity(t *testing.T) {
	rl := NewRateLimiter(1, 1, zap.NewNop())
	defer rl.Shutdown()

	for i := 0; i < maxTrackedClients; i++ {
		rl.allow(string(rune(i)))
	}
	assert.Len(t, rl.limiters, maxTrackedClients)

	rl.allow("newcomer")
	assert.Len(t, rl.limiters, maxTrackedClients)
	assert.Contains(t, rl.limiters, "newcomer")
}
