// Package service contains the business logic layer.
//
// Services receive an explicit domain.AuthContext on every call, apply the
// access gate and the transition tables, and return *domain.Error values that
// the handler layer maps to HTTP responses.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/email"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
)

// timeNow is the service clock. Tests pin it to exercise month boundaries.
var timeNow = func() time.Time { return time.Now().UTC() }

// =============================================================================
// Error mapping
// =============================================================================

// lookupError converts a repository lookup failure into an application error.
func lookupError(err error, op, resource string, id uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(op, resource, id.String())
	}
	return domain.Internal(err, op, "failed to load "+resource)
}

// writeError converts a repository write failure. conflictMsg is returned to
// the client when a unique constraint fires.
func writeError(err error, op, conflictMsg, internalMsg string) error {
	if errors.Is(err, repository.ErrUniqueViolation) {
		return domain.Conflict(op, conflictMsg)
	}
	return domain.Internal(err, op, internalMsg)
}

// passThrough returns application errors unchanged and wraps anything else
// as internal. It is applied to the result of ExecTx.
func passThrough(err error, op, message string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	var ve *domain.ValidationError
	if errors.As(err, &de) || errors.As(err, &ve) {
		return err
	}
	return domain.Internal(err, op, message)
}

// =============================================================================
// Transitions
// =============================================================================

// next consults a transition table and re-labels a rejection with the
// calling operation.
func next[S ~string, A ~string](m *domain.Machine[S, A], op string, from S, action A, actor domain.Actor) (S, error) {
	to, err := m.Next(from, action, actor)
	if err != nil {
		metrics.TransitionRejected(m.Entity())
		var te *domain.TransitionError
		if errors.As(err, &te) {
			return from, domain.InvalidTransition(op, te)
		}
		return from, err
	}
	return to, nil
}

// statusError converts the result of a conditional status update. A stale
// row means another request moved the entity first.
func statusError[S ~string](err error, op, entity string, from S, action string, actor domain.Actor) error {
	if errors.Is(err, repository.ErrStale) {
		metrics.TransitionRejected(entity)
		return domain.InvalidTransition(op, &domain.TransitionError{
			Entity: entity,
			From:   string(from),
			Action: action,
			Actor:  actor,
		})
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(op, entity, "")
	}
	return domain.Internal(err, op, "failed to update "+entity)
}

// =============================================================================
// Access
// =============================================================================

// requireRole fails with Unauthorized for anonymous callers and Forbidden
// for callers with another role.
func requireRole(op string, ac domain.AuthContext, roles ...domain.Role) error {
	if ac.IsAnonymous() {
		return domain.Unauthorized(op, "Authentication required")
	}
	for _, r := range roles {
		if ac.Role == r {
			return nil
		}
	}
	return domain.Forbidden(op, "You don't have permission to perform this action")
}

// profileForUser loads the caller's trades profile.
func profileForUser(ctx context.Context, q repository.Querier, op string, userID uuid.UUID) (*domain.TradesProfile, error) {
	profile, err := q.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Invalid(op, "Create your trades profile first")
		}
		return nil, domain.Internal(err, op, "failed to load profile")
	}
	return profile, nil
}

// =============================================================================
// Notifications
// =============================================================================

// notify runs a best-effort notification. Failures are logged and dropped.
func notify(ctx context.Context, logger *slog.Logger, notifier email.EmailService, kind string, send func(context.Context, email.EmailService) error) {
	if notifier == nil {
		return
	}
	if err := send(ctx, notifier); err != nil {
		logger.Warn("notification failed", "kind", kind, "error", err)
	}
}
