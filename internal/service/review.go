package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/email"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

// DefaultReviewQueueSize is the page size of the admin moderation queue.
const DefaultReviewQueueSize = 50

// =============================================================================
// Interface Definition
// =============================================================================

// ReviewService manages customer reviews and their moderation.
type ReviewService interface {
	// Create submits a review for moderation. Customers review a profile once.
	Create(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID, params domain.CreateReviewParams) (*domain.Review, error)

	// Get returns a review if the caller may see it.
	Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Review, error)

	// ListPublic returns the approved reviews of an active profile.
	ListPublic(ctx context.Context, profileID uuid.UUID) ([]domain.Review, error)

	// ListQueue returns reviews awaiting moderation in the given status.
	ListQueue(ctx context.Context, ac domain.AuthContext, status domain.ReviewStatus, limit, offset int) ([]domain.Review, error)

	// Moderate applies an admin decision. The profile rating is recomputed in
	// the same transaction whenever the approved set changes.
	Moderate(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ModerateReviewParams) (*domain.Review, error)

	// Respond records the profile owner's reply to an approved review.
	Respond(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ReviewResponseParams) (*domain.Review, error)

	// RecomputeRating rebuilds a profile's rating from its approved reviews.
	RecomputeRating(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID) (*domain.TradesProfile, error)
}

// =============================================================================
// Implementation
// =============================================================================

type reviewService struct {
	store    repository.Store
	notifier email.EmailService
	logger   *slog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(store repository.Store, notifier email.EmailService, logger *slog.Logger) ReviewService {
	return &reviewService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Create submits a review.
func (s *reviewService) Create(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID, params domain.CreateReviewParams) (*domain.Review, error) {
	const op = "review.create"

	if err := requireRole(op, ac, domain.RoleCustomer); err != nil {
		return nil, err
	}
	params.Title = strings.TrimSpace(params.Title)
	params.Content = strings.TrimSpace(params.Content)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", profileID)
	}
	if !profile.IsActive {
		return nil, domain.NotFound(op, "profile", profileID.String())
	}
	if profile.UserID == ac.UserID {
		return nil, domain.Invalid(op, "You cannot review your own profile")
	}

	_, err = s.store.GetReviewByAuthorAndProfile(ctx, ac.UserID, profileID)
	switch {
	case err == nil:
		return nil, domain.Conflict(op, "You have already reviewed this tradesperson")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, domain.Internal(err, op, "failed to check existing review")
	}

	now := timeNow()
	review := &domain.Review{
		ID:                uuid.New(),
		ProfileID:         profileID,
		AuthorID:          ac.UserID,
		Status:            domain.ReviewPending,
		OverallRating:     params.OverallRating,
		QualityRating:     params.QualityRating,
		ReliabilityRating: params.ReliabilityRating,
		ValueRating:       params.ValueRating,
		Title:             params.Title,
		Content:           params.Content,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, writeError(err, op, "You have already reviewed this tradesperson", "failed to create review")
	}

	s.logger.Info("review submitted", "review_id", review.ID, "profile_id", profileID, "author_id", ac.UserID)
	return review, nil
}

// Get returns a review if the caller may see it.
func (s *reviewService) Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Review, error) {
	const op = "review.get"

	review, err := s.store.GetReviewByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "review", id)
	}
	profile, err := s.store.GetProfileByID(ctx, review.ProfileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", review.ProfileID)
	}
	res := review.Resource(profile.UserID)
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return nil, err
	}
	return review, nil
}

// ListPublic returns the approved reviews of an active profile.
func (s *reviewService) ListPublic(ctx context.Context, profileID uuid.UUID) ([]domain.Review, error) {
	const op = "review.list_public"

	profile, err := s.store.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", profileID)
	}
	if !profile.IsActive {
		return nil, domain.NotFound(op, "profile", profileID.String())
	}
	reviews, err := s.store.ListReviewsByProfile(ctx, profileID, domain.ReviewApproved)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reviews")
	}
	return reviews, nil
}

// ListQueue returns reviews in a moderation status.
func (s *reviewService) ListQueue(ctx context.Context, ac domain.AuthContext, status domain.ReviewStatus, limit, offset int) ([]domain.Review, error) {
	const op = "review.list_queue"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if status == "" {
		status = domain.ReviewPending
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError(op, "status", "status must be one of: PENDING APPROVED REJECTED FLAGGED")
	}
	if limit <= 0 || limit > DefaultReviewQueueSize {
		limit = DefaultReviewQueueSize
	}
	if offset < 0 {
		offset = 0
	}
	reviews, err := s.store.ListReviewsByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reviews")
	}
	return reviews, nil
}

// Moderate applies an admin decision to a review.
func (s *reviewService) Moderate(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ModerateReviewParams) (*domain.Review, error) {
	const op = "review.moderate"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	params.Reason = strings.TrimSpace(params.Reason)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	var review *domain.Review
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		review, err = q.GetReviewByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "review", id)
		}
		_, err = moderateReview(ctx, q, op, review, params.Action, params.Reason)
		return err
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to moderate review")
	}

	if review.Status == domain.ReviewApproved {
		metrics.ReviewsApproved.Inc()
	}
	s.logger.Info("review moderated", "review_id", review.ID, "action", params.Action, "status", review.Status, "admin_id", ac.UserID)

	if author, err := s.store.GetUserByID(ctx, review.AuthorID); err == nil {
		notify(ctx, s.logger, s.notifier, "review_moderated", func(ctx context.Context, n email.EmailService) error {
			return n.SendReviewModeratedEmail(ctx, author.Email, author.DisplayName(), string(review.Status))
		})
	}
	return review, nil
}

// Respond records the owner's reply.
func (s *reviewService) Respond(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ReviewResponseParams) (*domain.Review, error) {
	const op = "review.respond"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	params.Response = strings.TrimSpace(params.Response)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	review, err := s.store.GetReviewByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "review", id)
	}
	profile, err := s.store.GetProfileByID(ctx, review.ProfileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", review.ProfileID)
	}
	if profile.UserID != ac.UserID {
		return nil, domain.NotFound(op, "review", id.String())
	}
	if review.Status != domain.ReviewApproved {
		return nil, domain.Invalid(op, "Only approved reviews can be answered")
	}

	now := timeNow()
	if err := s.store.SetReviewResponse(ctx, review.ID, params.Response, now); err != nil {
		return nil, lookupError(err, op, "review", review.ID)
	}
	review.Response = params.Response
	review.RespondedAt = &now
	review.UpdatedAt = now
	return review, nil
}

// RecomputeRating rebuilds a profile's rating.
func (s *reviewService) RecomputeRating(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID) (*domain.TradesProfile, error) {
	const op = "review.recompute_rating"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		return recomputeProfileRating(ctx, q, op, profileID)
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to recompute rating")
	}
	profile, err := s.store.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", profileID)
	}
	return profile, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// moderateReview moves a review through the admin edge and recomputes the
// profile rating when the approved set changes. It reports whether the
// rating was recomputed. The review is updated in place.
func moderateReview(ctx context.Context, q repository.Querier, op string, review *domain.Review, action domain.ReviewAction, reason string) (bool, error) {
	from := review.Status
	to, err := next(domain.ReviewMachine, op, from, action, domain.ActorAdmin)
	if err != nil {
		return false, err
	}
	now := timeNow()
	if err := q.ModerateReview(ctx, repository.ModerateReviewParams{
		ID:     review.ID,
		From:   from,
		To:     to,
		Reason: reason,
		At:     now,
	}); err != nil {
		return false, statusError(err, op, "review", from, string(action), domain.ActorAdmin)
	}
	metrics.TransitionApplied("review", string(action))

	review.Status = to
	review.RejectionReason = reason
	review.ModeratedAt = &now
	review.UpdatedAt = now

	if !domain.AffectsRating(from, to) {
		return false, nil
	}
	return true, recomputeProfileRating(ctx, q, op, review.ProfileID)
}
