// Package domain contains core business types and interfaces.
//
// This file defines subscription tiers and the entitlements each one grants.
package domain

import (
	"fmt"
	"time"
)

// SubscriptionTier represents the pricing tier of a trades profile.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "FREE"
	TierPro     SubscriptionTier = "PRO"
	TierPremium SubscriptionTier = "PREMIUM"
)

// String returns the string representation of the tier.
func (t SubscriptionTier) String() string {
	return string(t)
}

// IsValid returns true if the tier is a recognized value.
func (t SubscriptionTier) IsValid() bool {
	_, ok := tierLimits[t]
	return ok
}

// IsPaid returns true for tiers backed by a billing subscription.
func (t SubscriptionTier) IsPaid() bool {
	return t == TierPro || t == TierPremium
}

// Unlimited is the sentinel limit for an uncapped entitlement. Callers must
// test for it with IsUnlimited rather than comparing numerically.
const Unlimited = -1

// IsUnlimited reports whether a limit is the unlimited sentinel.
func IsUnlimited(limit int) bool {
	return limit == Unlimited
}

// Limits are the entitlements granted by a tier.
type Limits struct {
	MaxPortfolioPhotos      int `json:"max_portfolio_photos"`
	MonthlyApplicationLimit int `json:"monthly_application_limit"`
	MonthlyQuoteLimit       int `json:"monthly_quote_limit"`
	MaxVerificationBadges   int `json:"max_verification_badges"`
}

var tierLimits = map[SubscriptionTier]Limits{
	TierFree: {
		MaxPortfolioPhotos:      5,
		MonthlyApplicationLimit: 5,
		MonthlyQuoteLimit:       10,
		MaxVerificationBadges:   1,
	},
	TierPro: {
		MaxPortfolioPhotos:      20,
		MonthlyApplicationLimit: 30,
		MonthlyQuoteLimit:       50,
		MaxVerificationBadges:   3,
	},
	TierPremium: {
		MaxPortfolioPhotos:      Unlimited,
		MonthlyApplicationLimit: Unlimited,
		MonthlyQuoteLimit:       Unlimited,
		MaxVerificationBadges:   Unlimited,
	},
}

// LimitsFor returns the entitlements of a tier. The tier set is closed, so an
// unknown tier is a programming error and panics.
func LimitsFor(tier SubscriptionTier) Limits {
	limits, ok := tierLimits[tier]
	if !ok {
		panic(fmt.Sprintf("domain: no limits defined for subscription tier %q", tier))
	}
	return limits
}

// UsageKind identifies a monthly-capped action.
type UsageKind string

const (
	UsageApplication UsageKind = "application"
	UsageQuote       UsageKind = "quote"
)

// Plural returns the user-facing plural noun for the kind.
func (k UsageKind) Plural() string {
	switch k {
	case UsageApplication:
		return "job applications"
	case UsageQuote:
		return "quote requests"
	}
	return string(k) + "s"
}

// MonthlyLimit returns the monthly cap for a usage kind.
func (l Limits) MonthlyLimit(kind UsageKind) int {
	switch kind {
	case UsageApplication:
		return l.MonthlyApplicationLimit
	case UsageQuote:
		return l.MonthlyQuoteLimit
	}
	panic(fmt.Sprintf("domain: unknown usage kind %q", kind))
}

// Remaining returns how many more actions of kind the tier admits this month,
// clamped at zero, or Unlimited.
func Remaining(tier SubscriptionTier, kind UsageKind, used int) int {
	limit := LimitsFor(tier).MonthlyLimit(kind)
	if IsUnlimited(limit) {
		return Unlimited
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// Allows reports whether a capped count still has room for one more item.
func Allows(limit, used int) bool {
	return IsUnlimited(limit) || used < limit
}

// MonthStart returns midnight UTC on the first day of the calendar month
// containing t. Quotas reset at this instant regardless of signup date.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Usage reports consumption of one monthly allowance.
type Usage struct {
	Kind      UsageKind `json:"kind"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Unlimited bool      `json:"unlimited"`
}

// NewUsage builds a Usage for a tier and used count.
func NewUsage(tier SubscriptionTier, kind UsageKind, used int) Usage {
	limit := LimitsFor(tier).MonthlyLimit(kind)
	return Usage{
		Kind:      kind,
		Used:      used,
		Limit:     limit,
		Remaining: Remaining(tier, kind, used),
		Unlimited: IsUnlimited(limit),
	}
}

// UsageSummary is the dashboard view of a profile's allowances.
type UsageSummary struct {
	Tier         SubscriptionTier `json:"tier"`
	Limits       Limits           `json:"limits"`
	Applications Usage            `json:"applications"`
	Quotes       Usage            `json:"quotes"`
	PeriodStart  time.Time        `json:"period_start"`
}
