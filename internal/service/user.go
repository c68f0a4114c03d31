package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// It is deliberately not configurable at runtime.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// The token is hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// DefaultSessionDuration is used when no duration is configured.
	DefaultSessionDuration = 24 * time.Hour

	// MinSessionDuration and MaxSessionDuration bound the configured duration.
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
)

// bcrypt hash of "dummy", compared against when the email is unknown so
// login takes the same time either way.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

const errMsgInvalidCredentials = "Invalid email or password"

const errMsgInvalidSession = "Invalid or expired session"

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the account and session operations.
type UserService interface {
	// Register creates a new customer or tradesperson account.
	// Emails listed in the admin allowlist are promoted to ADMIN.
	// Returns domain.ECONFLICT if email already exists.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. It is idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken returns the user owning a live session.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// DeleteExpiredSessions removes expired sessions and reports how many.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// UserServiceConfig configures session lifetime and admin promotion.
type UserServiceConfig struct {
	SessionDuration time.Duration
	AdminEmails     []string
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	store           repository.Store
	logger          *slog.Logger
	sessionDuration time.Duration
	admins          map[string]bool
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, cfg UserServiceConfig, logger *slog.Logger) UserService {
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &userService{
		store:           store,
		logger:          logger,
		sessionDuration: normalizeSessionDuration(cfg.SessionDuration),
		admins:          admins,
	}
}

// normalizeSessionDuration clamps a configured duration into the allowed
// range. Zero selects the default.
func normalizeSessionDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionDuration
	case d < MinSessionDuration:
		return MinSessionDuration
	case d > MaxSessionDuration:
		return MaxSessionDuration
	}
	return d
}

// Register creates a new account.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	_, err := s.store.GetUserByEmail(ctx, params.Email)
	if err == nil {
		// Hash anyway so the response time does not reveal the account exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	role := params.Role
	if s.admins[params.Email] {
		role = domain.RoleAdmin
	}

	now := timeNow()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Name:         params.Name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, writeError(err, op, "Email already registered", "Failed to create user")
	}

	user.PasswordHash = ""
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login authenticates a user and creates a new session. The raw token is
// returned once and only its SHA-256 hash is stored.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, errMsgInvalidCredentials)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, errMsgInvalidCredentials)
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	now := timeNow()
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: now.Add(s.sessionDuration),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID)

	return &domain.LoginResult{User: user, Token: token}, nil
}

// Logout deletes the session. Unknown or malformed tokens are not an error.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != SessionTokenBytes*2 {
		return nil
	}
	if err := s.store.DeleteSession(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}
	s.logger.Debug("session invalidated")
	return nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get"

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "user", id)
	}
	user.PasswordHash = ""
	return user, nil
}

// GetBySessionToken resolves a raw session token to its user.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.session"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, errMsgInvalidSession)
	}

	session, err := s.store.GetSessionByTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized(op, errMsgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}
	if !timeNow().Before(session.ExpiresAt) {
		return nil, domain.Unauthorized(op, errMsgInvalidSession)
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized(op, errMsgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user.PasswordHash = ""
	return user, nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "user.delete_expired_sessions"

	n, err := s.store.DeleteExpiredSessions(ctx, timeNow())
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}
	if n > 0 {
		s.logger.Info("expired sessions deleted", "count", n)
	}
	return n, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken returns 32 random bytes, hex-encoded.
func generateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken returns the SHA-256 hex digest stored in place of the token.
func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var commonPasswords = map[string]bool{
	"password1":   true,
	"password12":  true,
	"password123": true,
	"qwerty123":   true,
	"qwerty1234":  true,
	"letmein1":    true,
	"letmein123":  true,
	"welcome1":    true,
	"welcome123":  true,
	"admin123":    true,
	"abc12345":    true,
	"iloveyou1":   true,
	"monkey123":   true,
	"dragon123":   true,
	"12345678a":   true,
	"trustno1a":   true,
}

// validatePassword enforces length, a letter, a digit and rejects
// well-known passwords. Failures are reported against the password field.
func validatePassword(password string) error {
	const op = "user.validate_password"

	var problem string
	switch {
	case len(password) < MinPasswordLength:
		problem = fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	case len(password) > MaxPasswordLength:
		problem = fmt.Sprintf("Password must be at most %d characters", MaxPasswordLength)
	case !strings.ContainsFunc(password, unicode.IsLetter):
		problem = "Password must contain at least one letter"
	case !strings.ContainsFunc(password, unicode.IsDigit):
		problem = "Password must contain at least one number"
	case commonPasswords[strings.ToLower(password)]:
		problem = "Password is too common. Choose something harder to guess"
	default:
		return nil
	}
	return domain.NewValidationError(op, "password", problem)
}
