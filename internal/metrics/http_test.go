package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/jobs", "/jobs"},
		{"/jobs/0b7e2a3c-4d5f-4a6b-9c8d-2d5f8e0a1b01", "/jobs/{id}"},
		{
			"/jobs/0b7e2a3c-4d5f-4a6b-9c8d-2d5f8e0a1b01/applications/6f1c8b0e-3a2d-4e5f-8a9b-0c1d2e3f4a5b",
			"/jobs/{id}/applications/{id}",
		},
		{"/quotes/by-ref/QR-7KD2M9XA", "/quotes/by-ref/{ref}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path))
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/teapot", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/teapot", "418"))

	assert.Equal(t, before+1, after)
}

func TestMiddleware_CollapsesNotFound(t *testing.T) {
	h := Middleware(http.NotFoundHandler())

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.env", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))

	assert.Equal(t, before+2, after)
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/trades", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trades", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/trades", "200")))
}

func TestTransitionApplied(t *testing.T) {
	before := testutil.ToFloat64(Transitions.WithLabelValues("job", "close"))
	TransitionApplied("job", "close")
	assert.Equal(t, before+1, testutil.ToFloat64(Transitions.WithLabelValues("job", "close")))
}
