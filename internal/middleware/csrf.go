package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/tradeslink/internal/csrf"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/handler"
	"github.com/DukeRupert/tradeslink/internal/session"
)

// CSRFMiddleware enforces the double-submit check on cookie-authenticated
// requests that change state.
type CSRFMiddleware struct {
	exempt []string
	logger *slog.Logger
}

// NewCSRFMiddleware creates a CSRF check. Paths with one of the exempt
// prefixes are skipped; webhooks authenticate by signature instead.
func NewCSRFMiddleware(logger *slog.Logger, exemptPrefixes ...string) *CSRFMiddleware {
	return &CSRFMiddleware{exempt: exemptPrefixes, logger: logger}
}

// Handler rejects unsafe requests that carry a session cookie but no
// matching X-CSRF-Token header.
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || m.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		// Without a session cookie there is no ambient credential to abuse.
		if _, err := r.Cookie(session.CookieName); err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if !csrf.ValidateRequest(r) {
			m.logger.Warn("csrf check failed",
				"path", r.URL.Path,
				"method", r.Method,
				"ip", getClientIP(r),
			)
			handler.ErrorResponse(w, r, m.logger, domain.Forbidden("csrf", "Invalid or missing CSRF token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *CSRFMiddleware) isExempt(path string) bool {
	for _, prefix := range m.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
