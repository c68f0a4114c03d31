package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/tradeslink/internal/billing"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
)

// BillingService turns tier upgrades into provider checkout and portal
// sessions and applies the provider's webhook events.
type BillingService interface {
	// Checkout returns a checkout URL for upgrading the caller's profile.
	Checkout(ctx context.Context, ac domain.AuthContext, tier domain.SubscriptionTier) (string, error)

	// Portal returns a billing portal URL for the caller's profile.
	Portal(ctx context.Context, ac domain.AuthContext) (string, error)

	// HandleWebhook verifies and applies a provider event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// BillingURLs are the pages the provider sends the user back to.
type BillingURLs struct {
	SuccessURL string
	CancelURL  string
	ReturnURL  string
}

type billingService struct {
	store    repository.Store
	provider billing.Service
	profiles ProfileService
	urls     BillingURLs
	logger   *slog.Logger
}

// NewBillingService creates a new BillingService. provider may be nil when
// billing is not configured; every call then fails as an external error.
func NewBillingService(store repository.Store, provider billing.Service, profiles ProfileService, urls BillingURLs, logger *slog.Logger) BillingService {
	return &billingService{
		store:    store,
		provider: provider,
		profiles: profiles,
		urls:     urls,
		logger:   logger,
	}
}

// Checkout creates the provider customer on first use, then a checkout session.
func (s *billingService) Checkout(ctx context.Context, ac domain.AuthContext, tier domain.SubscriptionTier) (string, error) {
	const op = "billing.checkout"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return "", err
	}
	if tier != domain.TierPro && tier != domain.TierPremium {
		return "", domain.NewValidationError(op, "tier", "tier must be one of: PRO PREMIUM")
	}
	if s.provider == nil {
		return "", domain.External(nil, op, "Billing is not available right now")
	}
	price, ok := s.provider.PriceForTier(tier)
	if !ok {
		return "", domain.External(nil, op, "Billing is not available right now")
	}

	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return "", err
	}
	if profile.SubscriptionTier == tier {
		return "", domain.Conflict(op, "You are already on this plan")
	}

	customerID := profile.StripeCustomerID
	if customerID == "" {
		user, err := s.store.GetUserByID(ctx, ac.UserID)
		if err != nil {
			return "", lookupError(err, op, "user", ac.UserID)
		}
		customerID, err = s.provider.CreateCustomer(user.Email, profile.BusinessName, profile.ID.String())
		metrics.BillingCall("create_customer", err)
		if err != nil {
			return "", domain.External(err, op, "Failed to start checkout")
		}
		if err := s.store.UpdateProfileSubscription(ctx, repository.UpdateSubscriptionParams{
			ProfileID:        profile.ID,
			Tier:             profile.SubscriptionTier,
			SubscriptionID:   profile.SubscriptionID,
			StripeCustomerID: customerID,
			At:               timeNow(),
		}); err != nil {
			return "", domain.Internal(err, op, "failed to save billing customer")
		}
	}

	url, err := s.provider.CreateCheckoutSession(customerID, price, profile.ID.String(), s.urls.SuccessURL, s.urls.CancelURL)
	metrics.BillingCall("checkout", err)
	if err != nil {
		return "", domain.External(err, op, "Failed to start checkout")
	}
	s.logger.Info("checkout session created", "profile_id", profile.ID, "tier", tier)
	return url, nil
}

// Portal opens the billing portal for a profile that has a provider customer.
func (s *billingService) Portal(ctx context.Context, ac domain.AuthContext) (string, error) {
	const op = "billing.portal"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return "", err
	}
	if s.provider == nil {
		return "", domain.External(nil, op, "Billing is not available right now")
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return "", err
	}
	if profile.StripeCustomerID == "" {
		return "", domain.Invalid(op, "You have no billing account yet")
	}

	url, err := s.provider.CreatePortalSession(profile.StripeCustomerID, s.urls.ReturnURL)
	metrics.BillingCall("portal", err)
	if err != nil {
		return "", domain.External(err, op, "Failed to open billing portal")
	}
	return url, nil
}

// HandleWebhook verifies and applies a provider event.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "billing.webhook"

	if s.provider == nil {
		return domain.External(nil, op, "Billing is not available right now")
	}
	event, err := s.provider.VerifyWebhookSignature(payload, signature)
	if err != nil {
		return domain.Invalid(op, "Invalid webhook signature")
	}

	change, ok, err := billing.ParseSubscriptionEvent(s.provider, event)
	if err != nil {
		return domain.Invalid(op, "Malformed webhook payload")
	}
	if !ok {
		s.logger.Debug("ignoring webhook event", "type", event.Type)
		return nil
	}

	return s.profiles.UpdateSubscription(ctx, SubscriptionUpdate{
		ProfileID:        change.ProfileID,
		StripeCustomerID: change.StripeCustomerID,
		SubscriptionID:   change.SubscriptionID,
		Tier:             change.Tier,
	})
}
