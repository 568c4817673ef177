package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleSpendsBurstThenDenies(t *testing.T) {
	th := newThrottle(1, 2)

	assert.True(t, th.allow("203.0.113.7"))
	assert.True(t, th.allow("203.0.113.7"))
	assert.False(t, th.allow("203.0.113.7"), "third request inside the burst window")

	// Buckets are per client.
	assert.True(t, th.allow("203.0.113.8"))
}

func TestRateLimitMiddlewareAnswers429(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	req.Header.Set("X-Real-Ip", "198.51.100.4")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
