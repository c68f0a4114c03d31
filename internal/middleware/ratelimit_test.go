package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(max, window, testLogger())
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newTestLimiter(t, 2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	assert.True(t, rl.Allow("10.0.0.2"), "limits are per key")
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := newTestLimiter(t, 1, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
	assert.Equal(t, time.Minute, rl.TimeUntilReset("k"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("k"))
}

func TestRateLimiter_RecordFailureAndReset(t *testing.T) {
	rl := newTestLimiter(t, 2, time.Minute)

	rl.RecordFailure("k")
	rl.RecordFailure("k")
	assert.False(t, rl.Allow("k"))

	rl.Reset("k")
	assert.True(t, rl.Allow("k"))
	assert.Zero(t, rl.TimeUntilReset("unknown"))
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, testLogger())
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimitMiddleware_BlocksWithRetryAfter(t *testing.T) {
	mw := NewRateLimitMiddleware(newTestLimiter(t, 1, time.Minute), testLogger())
	h := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:4321"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.ERATELIMIT, body["code"])
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, remote: "10.0.0.9:80", want: "203.0.113.5"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 203.0.113.6 "}, remote: "10.0.0.9:80", want: "203.0.113.6"},
		{name: "remote addr", remote: "198.51.100.7:5555", want: "198.51.100.7"},
		{name: "remote without port", remote: "198.51.100.8", want: "198.51.100.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestAuthRateLimiter_FailedLoginsCount(t *testing.T) {
	a := NewAuthRateLimiter(2, testLogger())
	t.Cleanup(a.Stop)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.3:1000"
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	a.RecordFailedLogin(req)
	a.RecordFailedLogin(req)
	rec := httptest.NewRecorder()
	a.LimitLogin(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	a.ResetLogin(req)
	rec = httptest.NewRecorder()
	a.LimitLogin(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimiter_Register(t *testing.T) {
	a := NewAuthRateLimiter(0, testLogger())
	t.Cleanup(a.Stop)
	h := a.LimitRegister(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/register", nil))
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/register", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
