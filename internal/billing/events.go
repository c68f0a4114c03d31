package billing

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// SubscriptionChange is the tier change carried by a webhook event.
type SubscriptionChange struct {
	// ProfileID is set when the provider object carries our metadata.
	ProfileID        uuid.UUID
	StripeCustomerID string
	SubscriptionID   string
	Tier             domain.SubscriptionTier
}

// ParseSubscriptionEvent extracts the subscription change from a webhook
// event. ok is false for event types that do not change a tier.
func ParseSubscriptionEvent(svc Service, event stripe.Event) (change SubscriptionChange, ok bool, err error) {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		return SubscriptionChange{}, false, nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return SubscriptionChange{}, false, fmt.Errorf("decode subscription: %w", err)
	}

	change.SubscriptionID = sub.ID
	if sub.Customer != nil {
		change.StripeCustomerID = sub.Customer.ID
	}
	if raw := sub.Metadata[profileIDKey]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return SubscriptionChange{}, false, fmt.Errorf("decode profile id metadata: %w", err)
		}
		change.ProfileID = id
	}

	change.Tier = domain.TierFree
	if isActive(sub.Status) && event.Type != "customer.subscription.deleted" {
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			change.Tier = svc.TierForPriceID(sub.Items.Data[0].Price.ID)
		}
	}
	if change.Tier == domain.TierFree {
		change.SubscriptionID = ""
	}
	return change, true, nil
}

func isActive(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}
