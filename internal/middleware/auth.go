// Package middleware contains HTTP middleware for the marketplace API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/handler"
	"github.com/DukeRupert/tradeslink/internal/service"
	"github.com/DukeRupert/tradeslink/internal/session"
)

// AuthMiddleware resolves the session cookie into an authenticated user.
type AuthMiddleware struct {
	users   service.UserService
	cookies *session.Codec
	logger  *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(users service.UserService, cookies *session.Codec, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		users:   users,
		cookies: cookies,
		logger:  logger,
	}
}

// WithUser loads the user behind the session cookie, if any, and always
// continues. Handlers then read the caller with auth.FromRequest; requests
// without a valid session run as the anonymous caller.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.cookies.Decode(cookie.Value)
		if err != nil {
			m.logger.Debug("rejected session cookie", "error", err)
			m.cookies.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetBySessionToken(r.Context(), token)
		if err != nil {
			m.cookies.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.SetUser(r.Context(), user)
		ctx = auth.SetSessionToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser answers 401 unless WithUser found a user.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only users with the given role. Anonymous callers get
// 401 and other users 403.
func (m *AuthMiddleware) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUser(r.Context())
			if user == nil {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			if user.Role != role {
				m.logger.Warn("role check failed",
					"user_id", user.ID,
					"role", user.Role,
					"required", role,
					"path", r.URL.Path,
				)
				handler.ForbiddenResponse(w, r, m.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stack composes middleware so the first one listed is the outermost.
//
//	stack := Stack(logging.Handler, authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /account/jobs", stack(h))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
)
