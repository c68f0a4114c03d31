package billing

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

func subscriptionEvent(t *testing.T, eventType, status, priceID string, profileID uuid.UUID) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       "sub_123",
		"object":   "subscription",
		"status":   status,
		"customer": "cus_456",
		"metadata": map[string]string{"profile_id": profileID.String()},
		"items": map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "si_1", "object": "subscription_item", "price": map[string]any{"id": priceID, "object": "price"}},
			},
		},
	})
	require.NoError(t, err)
	return stripe.Event{Type: stripe.EventType(eventType), Data: &stripe.EventData{Raw: raw}}
}

func TestParseSubscriptionEvent(t *testing.T) {
	svc := NewStripeService("sk_test", "whsec_test", PriceConfig{ProPriceID: "price_pro", PremiumPriceID: "price_premium"})
	profileID := uuid.New()

	tests := []struct {
		name      string
		eventType string
		status    string
		priceID   string
		wantOK    bool
		wantTier  domain.SubscriptionTier
		wantSubID string
	}{
		{"pro created", "customer.subscription.created", "active", "price_pro", true, domain.TierPro, "sub_123"},
		{"premium trialing", "customer.subscription.updated", "trialing", "price_premium", true, domain.TierPremium, "sub_123"},
		{"past due downgrades", "customer.subscription.updated", "past_due", "price_pro", true, domain.TierFree, ""},
		{"deleted downgrades", "customer.subscription.deleted", "canceled", "price_pro", true, domain.TierFree, ""},
		{"unknown price", "customer.subscription.updated", "active", "price_other", true, domain.TierFree, ""},
		{"ignored type", "invoice.paid", "active", "price_pro", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, ok, err := ParseSubscriptionEvent(svc, subscriptionEvent(t, tt.eventType, tt.status, tt.priceID, profileID))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantTier, change.Tier)
			assert.Equal(t, tt.wantSubID, change.SubscriptionID)
			assert.Equal(t, profileID, change.ProfileID)
			assert.Equal(t, "cus_456", change.StripeCustomerID)
		})
	}
}

func TestPriceMapping(t *testing.T) {
	svc := NewStripeService("sk_test", "whsec_test", PriceConfig{ProPriceID: "price_pro"})

	price, ok := svc.PriceForTier(domain.TierPro)
	assert.True(t, ok)
	assert.Equal(t, "price_pro", price)

	_, ok = svc.PriceForTier(domain.TierPremium)
	assert.False(t, ok)

	assert.Equal(t, domain.TierPro, svc.TierForPriceID("price_pro"))
	assert.Equal(t, domain.TierFree, svc.TierForPriceID("nope"))
}
