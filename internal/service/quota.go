// Package service contains the business logic layer.
//
// This file implements the usage service that counts monthly applications
// and quote requests and admits or refuses new ones by subscription tier.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UsageService counts monthly usage against tier entitlements.
//
// Counts are derived from timestamped rows since the first of the current
// calendar month in UTC, so they can be recomputed at any time.
type UsageService interface {
	// CountThisMonth returns how many items of kind the profile has used
	// this calendar month.
	CountThisMonth(ctx context.Context, profileID uuid.UUID, kind domain.UsageKind) (int, error)

	// Usage returns the dashboard summary for a profile.
	Usage(ctx context.Context, profile *domain.TradesProfile) (*domain.UsageSummary, error)

	// CheckCanSubmit returns nil if the profile may create one more item of
	// kind, or a QuotaExceeded error.
	CheckCanSubmit(ctx context.Context, profile *domain.TradesProfile, kind domain.UsageKind) error
}

// =============================================================================
// Implementation
// =============================================================================

type usageService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewUsageService creates a new UsageService.
func NewUsageService(store repository.Store, logger *slog.Logger) UsageService {
	return &usageService{
		store:  store,
		logger: logger,
	}
}

// CountThisMonth counts rows created since midnight UTC on the 1st.
func (s *usageService) CountThisMonth(ctx context.Context, profileID uuid.UUID, kind domain.UsageKind) (int, error) {
	const op = "usage.count"

	n, err := countSince(ctx, s.store, profileID, kind)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count usage")
	}
	return n, nil
}

// Usage returns both allowances of the profile's tier.
func (s *usageService) Usage(ctx context.Context, profile *domain.TradesProfile) (*domain.UsageSummary, error) {
	const op = "usage.summary"

	applications, err := countSince(ctx, s.store, profile.ID, domain.UsageApplication)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count applications")
	}
	quotes, err := countSince(ctx, s.store, profile.ID, domain.UsageQuote)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count quote requests")
	}

	return &domain.UsageSummary{
		Tier:         profile.SubscriptionTier,
		Limits:       profile.Limits(),
		Applications: domain.NewUsage(profile.SubscriptionTier, domain.UsageApplication, applications),
		Quotes:       domain.NewUsage(profile.SubscriptionTier, domain.UsageQuote, quotes),
		PeriodStart:  domain.MonthStart(timeNow()),
	}, nil
}

// CheckCanSubmit applies the gate outside a transaction. Submission paths
// call checkQuota on their transaction instead so the count and the insert
// see the same rows.
func (s *usageService) CheckCanSubmit(ctx context.Context, profile *domain.TradesProfile, kind domain.UsageKind) error {
	const op = "usage.check"
	return checkQuota(ctx, s.store, s.logger, op, profile, kind)
}

// =============================================================================
// Helper Functions
// =============================================================================

func countSince(ctx context.Context, q repository.Querier, profileID uuid.UUID, kind domain.UsageKind) (int, error) {
	since := domain.MonthStart(timeNow())
	switch kind {
	case domain.UsageApplication:
		return q.CountApplicationsSince(ctx, profileID, since)
	case domain.UsageQuote:
		return q.CountQuotesSince(ctx, profileID, since)
	}
	return 0, fmt.Errorf("unknown usage kind %q", kind)
}

// checkQuota counts usage with q and refuses the submission once the limit
// is reached. Unlimited tiers skip the count entirely.
func checkQuota(ctx context.Context, q repository.Querier, logger *slog.Logger, op string, profile *domain.TradesProfile, kind domain.UsageKind) error {
	limit := profile.Limits().MonthlyLimit(kind)
	if domain.IsUnlimited(limit) {
		return nil
	}

	used, err := countSince(ctx, q, profile.ID, kind)
	if err != nil {
		return domain.Internal(err, op, "failed to count usage")
	}

	if !domain.Allows(limit, used) {
		metrics.QuotaRejected(string(kind), profile.SubscriptionTier.String())
		logger.Info("quota exceeded",
			"profile_id", profile.ID,
			"kind", kind,
			"used", used,
			"limit", limit,
			"tier", profile.SubscriptionTier,
		)
		return domain.QuotaExceeded(op, profile.SubscriptionTier, kind, used, limit)
	}
	return nil
}
