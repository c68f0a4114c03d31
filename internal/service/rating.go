package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository"
)

// recomputeProfileRating rebuilds a profile's average and count from its
// approved reviews. Running it twice leaves the same values.
func recomputeProfileRating(ctx context.Context, q repository.Querier, op string, profileID uuid.UUID) error {
	reviews, err := q.ListReviewsByProfile(ctx, profileID, domain.ReviewApproved)
	if err != nil {
		return domain.Internal(err, op, "failed to load reviews")
	}
	average, count := domain.ComputeRating(reviews)
	if err := q.UpdateProfileRating(ctx, profileID, average, count); err != nil {
		return lookupError(err, op, "profile", profileID)
	}
	return nil
}
