package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/csrf"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
	"github.com/DukeRupert/tradeslink/internal/session"
)

// LoginAttempts tracks failed logins per client so repeated guessing is
// throttled. It may be nil.
type LoginAttempts interface {
	RecordFailedLogin(r *http.Request)
	ResetLogin(r *http.Request)
}

// AuthHandler serves registration and the session lifecycle.
type AuthHandler struct {
	users    service.UserService
	cookies  *session.Codec
	attempts LoginAttempts
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, cookies *session.Codec, attempts LoginAttempts, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		cookies:  cookies,
		attempts: attempts,
		logger:   logger,
	}
}

// RegisterRoutes registers the auth routes. limitLogin and limitRegister
// throttle the public endpoints.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limitLogin, limitRegister, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /register", limitRegister(http.HandlerFunc(h.Register)))
	mux.Handle("POST /login", limitLogin(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)
	mux.Handle("GET /me", requireUser(http.HandlerFunc(h.Me)))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      *domain.User `json:"user"`
	CSRFToken string       `json:"csrf_token"`
}

// Register creates an account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handler.register"

	var params domain.RegisterParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials, sets the session cookie and issues a fresh
// CSRF token for subsequent mutating requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handler.login"

	var req loginRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.attempts != nil && domain.ErrorCode(err) == domain.EUNAUTHORIZED {
			h.attempts.RecordFailedLogin(r)
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if h.attempts != nil {
		h.attempts.ResetLogin(r)
	}

	if err := h.cookies.SetCookie(w, result.Token); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to set session cookie"))
		return
	}
	token := csrf.RefreshToken(w, h.cookies.IsSecure())

	writeJSON(w, http.StatusOK, sessionResponse{User: result.User, CSRFToken: token})
}

// Logout revokes the current session. It is idempotent and always clears
// the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.SessionToken(r.Context())
	if token == "" {
		if c, err := r.Cookie(session.CookieName); err == nil {
			token, _ = h.cookies.Decode(c.Value)
		}
	}
	if token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			h.logger.Warn("failed to invalidate session", "error", err)
		}
	}

	h.cookies.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.GetUser(r.Context()))
}
