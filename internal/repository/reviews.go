package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// =============================================================================
// Reviews
// =============================================================================

var reviewColumns = []string{
	"id", "profile_id", "author_id", "status", "overall_rating",
	"quality_rating", "reliability_rating", "value_rating", "title", "content",
	"response", "responded_at", "rejection_reason", "is_verified", "moderated_at",
	"created_at", "updated_at",
}

func (q *Queries) CreateReview(ctx context.Context, r *domain.Review) error {
	_, err := q.exec(ctx, psql().Insert("reviews").
		Columns(reviewColumns...).
		Values(r.ID, r.ProfileID, r.AuthorID, r.Status, r.OverallRating,
			r.QualityRating, r.ReliabilityRating, r.ValueRating, r.Title, r.Content,
			r.Response, r.RespondedAt, r.RejectionReason, r.IsVerified, r.ModeratedAt,
			r.CreatedAt, r.UpdatedAt))
	return err
}

func (q *Queries) getReview(ctx context.Context, where sq.Sqlizer) (*domain.Review, error) {
	r := new(domain.Review)
	if err := q.get(ctx, r, psql().Select(reviewColumns...).From("reviews").Where(where)); err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) GetReviewByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	return q.getReview(ctx, sq.Eq{"id": id})
}

func (q *Queries) GetReviewByAuthorAndProfile(ctx context.Context, authorID, profileID uuid.UUID) (*domain.Review, error) {
	return q.getReview(ctx, sq.Eq{"author_id": authorID, "profile_id": profileID})
}

// ListReviewsByProfile returns the profile's reviews, newest first. With no
// statuses every review is returned.
func (q *Queries) ListReviewsByProfile(ctx context.Context, profileID uuid.UUID, statuses ...domain.ReviewStatus) ([]domain.Review, error) {
	b := psql().Select(reviewColumns...).From("reviews").Where(sq.Eq{"profile_id": profileID})
	if len(statuses) > 0 {
		b = b.Where(sq.Eq{"status": statuses})
	}
	var reviews []domain.Review
	err := q.selectAll(ctx, &reviews, b.OrderBy("created_at DESC"))
	return reviews, err
}

func (q *Queries) ListReviewsByStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]domain.Review, error) {
	var reviews []domain.Review
	err := q.selectAll(ctx, &reviews, psql().Select(reviewColumns...).From("reviews").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	return reviews, err
}

func (q *Queries) ModerateReview(ctx context.Context, arg ModerateReviewParams) error {
	return q.execOne(ctx, psql().Update("reviews").
		Set("status", arg.To).
		Set("rejection_reason", arg.Reason).
		Set("moderated_at", arg.At).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From}))
}

func (q *Queries) SetReviewResponse(ctx context.Context, id uuid.UUID, response string, at time.Time) error {
	return q.execByID(ctx, psql().Update("reviews").
		Set("response", response).
		Set("responded_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
}

// =============================================================================
// Verifications
// =============================================================================

var verificationColumns = []string{
	"id", "profile_id", "type", "status", "document_key", "expires_at", "notes",
	"rejection_reason", "reviewed_by", "reviewed_at", "created_at",
}

func (q *Queries) CreateVerification(ctx context.Context, v *domain.Verification) error {
	_, err := q.exec(ctx, psql().Insert("verifications").
		Columns(verificationColumns...).
		Values(v.ID, v.ProfileID, v.Type, v.Status, v.DocumentKey, v.ExpiresAt, v.Notes,
			v.RejectionReason, v.ReviewedBy, v.ReviewedAt, v.CreatedAt))
	return err
}

func (q *Queries) GetVerificationByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error) {
	v := new(domain.Verification)
	if err := q.get(ctx, v, psql().Select(verificationColumns...).From("verifications").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return v, nil
}

func (q *Queries) ListVerificationsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Verification, error) {
	var vs []domain.Verification
	err := q.selectAll(ctx, &vs, psql().Select(verificationColumns...).From("verifications").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("created_at DESC"))
	return vs, err
}

func (q *Queries) ListVerificationsByStatus(ctx context.Context, status domain.VerificationStatus, limit, offset int) ([]domain.Verification, error) {
	var vs []domain.Verification
	err := q.selectAll(ctx, &vs, psql().Select(verificationColumns...).From("verifications").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	return vs, err
}

func (q *Queries) ReviewVerification(ctx context.Context, arg ReviewVerificationParams) error {
	return q.execOne(ctx, psql().Update("verifications").
		Set("status", arg.To).
		Set("expires_at", arg.ExpiresAt).
		Set("notes", arg.Notes).
		Set("rejection_reason", arg.Reason).
		Set("reviewed_by", arg.ReviewerID).
		Set("reviewed_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From}))
}

func currentApproved(now time.Time) sq.Sqlizer {
	return sq.And{
		sq.Eq{"status": domain.VerificationApproved},
		sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": now}},
	}
}

// CountActiveVerifications counts pending submissions plus current badges,
// the figure checked against the tier's badge cap.
func (q *Queries) CountActiveVerifications(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error) {
	return q.count(ctx, psql().Select("COUNT(*)").From("verifications").
		Where(sq.Eq{"profile_id": profileID}).
		Where(sq.Or{sq.Eq{"status": domain.VerificationPending}, currentApproved(now)}))
}

func (q *Queries) CountCurrentApprovedVerifications(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error) {
	return q.count(ctx, psql().Select("COUNT(*)").From("verifications").
		Where(sq.Eq{"profile_id": profileID}).
		Where(currentApproved(now)))
}
