// Package domain contains core business types and interfaces.
//
// This file defines the tradesperson-side business listing and its trades
// and portfolio.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Trade is a category of work such as plumbing or roofing.
type Trade struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Slug string    `db:"slug" json:"slug"`
}

// TradesProfile is the public listing owned by a tradesperson account.
type TradesProfile struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	UserID           uuid.UUID        `db:"user_id" json:"user_id"`
	BusinessName     string           `db:"business_name" json:"business_name"`
	Bio              string           `db:"bio" json:"bio"`
	Location         string           `db:"location" json:"location"`
	CoverageRadius   int              `db:"coverage_radius" json:"coverage_radius"`
	SubscriptionTier SubscriptionTier `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionID   string           `db:"subscription_id" json:"-"`
	StripeCustomerID string           `db:"stripe_customer_id" json:"-"`
	IsActive         bool             `db:"is_active" json:"is_active"`
	IsVerified       bool             `db:"is_verified" json:"is_verified"`
	AverageRating    float64          `db:"average_rating" json:"average_rating"`
	ReviewCount      int              `db:"review_count" json:"review_count"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`

	Trades []Trade `db:"-" json:"trades,omitempty"`
}

// Limits returns the entitlements of the profile's current tier.
func (p *TradesProfile) Limits() Limits {
	return LimitsFor(p.SubscriptionTier)
}

// HasTrade reports whether the profile lists the given trade.
func (p *TradesProfile) HasTrade(tradeID uuid.UUID) bool {
	for _, t := range p.Trades {
		if t.ID == tradeID {
			return true
		}
	}
	return false
}

// TradeIDs returns the ids of the profile's trades.
func (p *TradesProfile) TradeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Trades))
	for i, t := range p.Trades {
		ids[i] = t.ID
	}
	return ids
}

// Resource describes the profile to the access gate. Active profiles are
// publicly readable; inactive ones are hidden from everyone but the owner.
func (p *TradesProfile) Resource() Resource {
	return Resource{
		Kind:       "profile",
		ID:         p.ID,
		OwnerIDs:   []uuid.UUID{p.UserID},
		PublicRead: p.IsActive,
		Private:    true,
	}
}

// PortfolioItem is a photo of past work.
type PortfolioItem struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ProfileID    uuid.UUID `db:"profile_id" json:"profile_id"`
	Title        string    `db:"title" json:"title"`
	ImageKey     string    `db:"image_key" json:"-"`
	ThumbnailKey string    `db:"thumbnail_key" json:"-"`
	ContentType  string    `db:"content_type" json:"content_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	ImageURL     string `db:"-" json:"image_url,omitempty"`
	ThumbnailURL string `db:"-" json:"thumbnail_url,omitempty"`
}

// CreateProfileParams contains the parameters for creating a trades profile.
type CreateProfileParams struct {
	BusinessName   string      `json:"business_name" validate:"required,min=2,max=120"`
	Bio            string      `json:"bio" validate:"max=2000"`
	Location       string      `json:"location" validate:"required,max=120"`
	CoverageRadius int         `json:"coverage_radius" validate:"gte=0,lte=500"`
	TradeIDs       []uuid.UUID `json:"trade_ids" validate:"required,min=1,max=10"`
}

// UpdateProfileParams contains the editable fields of a trades profile.
type UpdateProfileParams struct {
	BusinessName   string `json:"business_name" validate:"required,min=2,max=120"`
	Bio            string `json:"bio" validate:"max=2000"`
	Location       string `json:"location" validate:"required,max=120"`
	CoverageRadius int    `json:"coverage_radius" validate:"gte=0,lte=500"`
}

// AddPortfolioItemParams carries an uploaded portfolio photo.
type AddPortfolioItemParams struct {
	ProfileID   uuid.UUID
	Title       string
	Filename    string
	ContentType string
	Data        []byte
}

// ComputeRating returns the mean of the approved reviews' overall ratings,
// rounded to two decimals, and their count. Non-approved reviews are ignored.
func ComputeRating(reviews []Review) (float64, int) {
	sum, count := 0, 0
	for _, r := range reviews {
		if r.Status != ReviewApproved {
			continue
		}
		sum += r.OverallRating
		count++
	}
	if count == 0 {
		return 0, 0
	}
	avg := float64(sum) / float64(count)
	return math.Round(avg*100) / 100, count
}
