package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics data"))
	})

	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		want       int
	}{
		{name: "valid credentials", user: "admin", pass: "secret123", setAuth: true, want: http.StatusOK},
		{name: "no credentials", want: http.StatusUnauthorized},
		{name: "wrong username", user: "root", pass: "secret123", setAuth: true, want: http.StatusUnauthorized},
		{name: "wrong password", user: "admin", pass: "secret", setAuth: true, want: http.StatusUnauthorized},
		{name: "empty credentials", setAuth: true, want: http.StatusUnauthorized},
	}

	mw := NewMetricsAuthMiddleware("admin", "secret123")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			mw.Handler(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
			} else {
				assert.Equal(t, "metrics data", rec.Body.String())
			}
		})
	}
}

func TestMetricsAuthMiddleware_MalformedHeader(t *testing.T) {
	mw := NewMetricsAuthMiddleware("admin", "secret123")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Basic !!!notbase64")
	rec := httptest.NewRecorder()
	mw.Handler(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsAuthMiddleware_DisabledWithoutCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "")
	rec := httptest.NewRecorder()
	mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
