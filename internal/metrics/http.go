package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

var (
	uuidSegment = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	// Public references such as QR-7KD2M9XA and BP-3MZQ8HRT.
	referenceSegment = regexp.MustCompile(`\b(QR|BP)-[2-9A-HJ-NP-Z]{8}\b`)
)

// unmatchedRoute labels every 404 so scanners probing random paths cannot
// grow the label set.
const unmatchedRoute = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// normalizePath replaces ids and references with placeholders.
func normalizePath(path string) string {
	path = uuidSegment.ReplaceAllString(path, "{id}")
	return referenceSegment.ReplaceAllString(path, "{ref}")
}

func routeLabel(path string, status int) string {
	if status == http.StatusNotFound {
		return unmatchedRoute
	}
	return normalizePath(path)
}

// Middleware records request counts, latency and in-flight requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := routeLabel(r.URL.Path, status)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
