package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/tradeslink/internal/billing"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

// fakeBilling is a hand-written billing.Service for tests.
type fakeBilling struct {
	failCheckout bool
	customers    int
	event        stripe.Event
}

func (f *fakeBilling) CreateCustomer(email, name, profileID string) (string, error) {
	f.customers++
	return "cus_test", nil
}

func (f *fakeBilling) CreateCheckoutSession(customerID, priceID, profileID, successURL, cancelURL string) (string, error) {
	if f.failCheckout {
		return "", errors.New("stripe unavailable")
	}
	return "https://checkout.example/" + priceID, nil
}

func (f *fakeBilling) CreatePortalSession(customerID, returnURL string) (string, error) {
	return "https://portal.example/" + customerID, nil
}

func (f *fakeBilling) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	if signature != "valid" {
		return stripe.Event{}, errors.New("bad signature")
	}
	return f.event, nil
}

func (f *fakeBilling) PriceForTier(tier domain.SubscriptionTier) (string, bool) {
	switch tier {
	case domain.TierPro:
		return "price_pro", true
	case domain.TierPremium:
		return "price_premium", true
	}
	return "", false
}

func (f *fakeBilling) TierForPriceID(priceID string) domain.SubscriptionTier {
	switch priceID {
	case "price_pro":
		return domain.TierPro
	case "price_premium":
		return domain.TierPremium
	}
	return domain.TierFree
}

var _ billing.Service = (*fakeBilling)(nil)

func newBillingFixture(t *testing.T, provider billing.Service) (*memstore.Store, BillingService) {
	t.Helper()
	store := memstore.New()
	profiles := NewProfileService(store, nil, nil, testLogger())
	svc := NewBillingService(store, provider, profiles, BillingURLs{
		SuccessURL: "https://tradeslink.test/billing/success",
		CancelURL:  "https://tradeslink.test/billing",
		ReturnURL:  "https://tradeslink.test/billing",
	}, testLogger())
	return store, svc
}

func TestBillingCheckout(t *testing.T) {
	ctx := context.Background()
	provider := &fakeBilling{}
	store, svc := newBillingFixture(t, provider)
	tp, profile := seedTradesperson(t, store, domain.TierFree)

	url, err := svc.Checkout(ctx, tp, domain.TierPro)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/price_pro", url)

	stored, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_test", stored.StripeCustomerID)
	assert.Equal(t, domain.TierFree, stored.SubscriptionTier)

	_, err = svc.Checkout(ctx, tp, domain.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.customers)

	_, err = svc.Checkout(ctx, tp, domain.TierFree)
	require.True(t, domain.IsValidation(err))
}

func TestBillingCheckout_ProviderFailureIsExternal(t *testing.T) {
	ctx := context.Background()
	store, svc := newBillingFixture(t, &fakeBilling{failCheckout: true})
	tp, _ := seedTradesperson(t, store, domain.TierFree)

	_, err := svc.Checkout(ctx, tp, domain.TierPro)
	requireCode(t, err, domain.EEXTERNAL)
}

func TestBillingUnconfigured(t *testing.T) {
	ctx := context.Background()
	store, svc := newBillingFixture(t, nil)
	tp, _ := seedTradesperson(t, store, domain.TierFree)

	_, err := svc.Checkout(ctx, tp, domain.TierPro)
	requireCode(t, err, domain.EEXTERNAL)

	_, err = svc.Portal(ctx, tp)
	requireCode(t, err, domain.EEXTERNAL)
}

func TestBillingPortal(t *testing.T) {
	ctx := context.Background()
	store, svc := newBillingFixture(t, &fakeBilling{})
	tp, _ := seedTradesperson(t, store, domain.TierFree)

	_, err := svc.Portal(ctx, tp)
	requireCode(t, err, domain.EINVALID)

	_, err = svc.Checkout(ctx, tp, domain.TierPro)
	require.NoError(t, err)

	url, err := svc.Portal(ctx, tp)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/cus_test", url)
}

func TestBillingWebhook_UpgradesTier(t *testing.T) {
	ctx := context.Background()
	provider := &fakeBilling{}
	store, svc := newBillingFixture(t, provider)
	_, profile := seedTradesperson(t, store, domain.TierFree)

	raw, err := json.Marshal(map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"status":   "active",
		"customer": "cus_test",
		"metadata": map[string]string{"profile_id": profile.ID.String()},
		"items": map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": "si_1", "price": map[string]any{"id": "price_premium"}}},
		},
	})
	require.NoError(t, err)
	provider.event = stripe.Event{Type: "customer.subscription.updated", Data: &stripe.EventData{Raw: raw}}

	err = svc.HandleWebhook(ctx, []byte("{}"), "forged")
	requireCode(t, err, domain.EINVALID)

	require.NoError(t, svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	stored, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium, stored.SubscriptionTier)
	assert.Equal(t, "sub_1", stored.SubscriptionID)
	assert.True(t, domain.IsUnlimited(stored.Limits().MonthlyApplicationLimit))
}
