// Package billing provides Stripe billing integration for subscription tiers.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	billingportalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// Service defines the billing provider operations.
type Service interface {
	// CreateCustomer creates a provider customer and returns its id.
	CreateCustomer(email, name string, profileID string) (string, error)

	// CreateCheckoutSession starts a subscription checkout for priceID.
	// Returns the URL to send the user to.
	CreateCheckoutSession(customerID, priceID, profileID, successURL, cancelURL string) (string, error)

	// CreatePortalSession opens the customer billing portal.
	// Returns the URL to send the user to.
	CreatePortalSession(customerID, returnURL string) (string, error)

	// VerifyWebhookSignature checks the signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// PriceForTier returns the configured price for a paid tier.
	PriceForTier(tier domain.SubscriptionTier) (string, bool)

	// TierForPriceID maps a price back to its tier. Unknown prices map to FREE.
	TierForPriceID(priceID string) domain.SubscriptionTier
}

// PriceConfig holds the Stripe price IDs for the paid tiers.
type PriceConfig struct {
	ProPriceID     string
	PremiumPriceID string
}

// profileIDKey is the metadata key that ties provider objects to a profile.
const profileIDKey = "profile_id"

type stripeService struct {
	webhookSecret string
	tierToPrice   map[domain.SubscriptionTier]string
	priceToTier   map[string]domain.SubscriptionTier
}

// NewStripeService creates a Stripe billing service.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	s := &stripeService{
		webhookSecret: webhookSecret,
		tierToPrice:   make(map[domain.SubscriptionTier]string),
		priceToTier:   make(map[string]domain.SubscriptionTier),
	}
	if prices.ProPriceID != "" {
		s.tierToPrice[domain.TierPro] = prices.ProPriceID
		s.priceToTier[prices.ProPriceID] = domain.TierPro
	}
	if prices.PremiumPriceID != "" {
		s.tierToPrice[domain.TierPremium] = prices.PremiumPriceID
		s.priceToTier[prices.PremiumPriceID] = domain.TierPremium
	}
	return s
}

func (s *stripeService) CreateCustomer(email, name, profileID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.AddMetadata(profileIDKey, profileID)
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(customerID, priceID, profileID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(profileID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{profileIDKey: profileID},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := billingportalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) PriceForTier(tier domain.SubscriptionTier) (string, bool) {
	price, ok := s.tierToPrice[tier]
	return price, ok
}

func (s *stripeService) TierForPriceID(priceID string) domain.SubscriptionTier {
	if tier, ok := s.priceToTier[priceID]; ok {
		return tier
	}
	return domain.TierFree
}
