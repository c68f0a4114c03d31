// Package domain contains core business types and interfaces.
//
// This file defines customer reviews of a trades profile.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the moderation state of a review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
	ReviewFlagged  ReviewStatus = "FLAGGED"
)

// String returns the string representation of the status.
func (s ReviewStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected, ReviewFlagged:
		return true
	}
	return false
}

// ReviewAction names a review moderation transition.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
	ReviewActionFlag    ReviewAction = "flag"
)

// ReviewMachine is the transition table for reviews. Approval starts from
// PENDING; past that admins may only re-moderate between APPROVED and REJECTED.
var ReviewMachine = NewMachine("review",
	Edge[ReviewStatus, ReviewAction]{From: []ReviewStatus{ReviewPending, ReviewRejected}, Action: ReviewActionApprove, Actor: ActorAdmin, To: ReviewApproved},
	Edge[ReviewStatus, ReviewAction]{From: []ReviewStatus{ReviewPending, ReviewFlagged, ReviewApproved}, Action: ReviewActionReject, Actor: ActorAdmin, To: ReviewRejected},
	Edge[ReviewStatus, ReviewAction]{From: []ReviewStatus{ReviewPending}, Action: ReviewActionFlag, Actor: ActorAdmin, To: ReviewFlagged},
)

// AffectsRating reports whether moving between the two statuses changes the
// set of approved reviews.
func AffectsRating(from, to ReviewStatus) bool {
	return (from == ReviewApproved) != (to == ReviewApproved)
}

// Review is a customer's rating of a trades profile. An author reviews a
// profile at most once.
type Review struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	ProfileID         uuid.UUID    `db:"profile_id" json:"profile_id"`
	AuthorID          uuid.UUID    `db:"author_id" json:"author_id"`
	Status            ReviewStatus `db:"status" json:"status"`
	OverallRating     int          `db:"overall_rating" json:"overall_rating"`
	QualityRating     *int         `db:"quality_rating" json:"quality_rating,omitempty"`
	ReliabilityRating *int         `db:"reliability_rating" json:"reliability_rating,omitempty"`
	ValueRating       *int         `db:"value_rating" json:"value_rating,omitempty"`
	Title             string       `db:"title" json:"title"`
	Content           string       `db:"content" json:"content"`
	Response          string       `db:"response" json:"response,omitempty"`
	RespondedAt       *time.Time   `db:"responded_at" json:"responded_at,omitempty"`
	RejectionReason   string       `db:"rejection_reason" json:"-"`
	IsVerified        bool         `db:"is_verified" json:"is_verified"`
	ModeratedAt       *time.Time   `db:"moderated_at" json:"moderated_at,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// Resource describes the review to the access gate. Approved reviews are
// public; the author and the reviewed profile's owner see the rest.
func (r *Review) Resource(profileOwnerID uuid.UUID) Resource {
	return Resource{
		Kind:       "review",
		ID:         r.ID,
		OwnerIDs:   []uuid.UUID{r.AuthorID, profileOwnerID},
		PublicRead: r.Status == ReviewApproved,
		Private:    true,
	}
}

// CreateReviewParams contains the parameters for reviewing a profile.
type CreateReviewParams struct {
	OverallRating     int    `json:"overall_rating" validate:"required,min=1,max=5"`
	QualityRating     *int   `json:"quality_rating" validate:"omitempty,min=1,max=5"`
	ReliabilityRating *int   `json:"reliability_rating" validate:"omitempty,min=1,max=5"`
	ValueRating       *int   `json:"value_rating" validate:"omitempty,min=1,max=5"`
	Title             string `json:"title" validate:"required,min=3,max=120"`
	Content           string `json:"content" validate:"required,min=50,max=5000"`
}

// ModerateReviewParams carries an admin's moderation decision.
type ModerateReviewParams struct {
	Action ReviewAction `json:"action" validate:"required,oneof=approve reject flag"`
	Reason string       `json:"reason" validate:"required_if=Action reject,max=1000"`
}

// ReviewResponseParams carries a profile owner's public reply.
type ReviewResponseParams struct {
	Response string `json:"response" validate:"required,min=2,max=2000"`
}
