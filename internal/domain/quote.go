// Package domain contains core business types and interfaces.
//
// This file defines quote requests sent to a tradesperson.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuoteStatus represents the lifecycle state of a quote request.
type QuoteStatus string

const (
	QuotePending   QuoteStatus = "PENDING"
	QuoteViewed    QuoteStatus = "VIEWED"
	QuoteResponded QuoteStatus = "RESPONDED"
	QuoteAccepted  QuoteStatus = "ACCEPTED"
	QuoteDeclined  QuoteStatus = "DECLINED"
)

// String returns the string representation of the status.
func (s QuoteStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuotePending, QuoteViewed, QuoteResponded, QuoteAccepted, QuoteDeclined:
		return true
	}
	return false
}

// QuoteAction names a quote request transition.
type QuoteAction string

const (
	QuoteActionView    QuoteAction = "view"
	QuoteActionRespond QuoteAction = "respond"
	QuoteActionAccept  QuoteAction = "accept"
	QuoteActionDecline QuoteAction = "decline"
)

// QuoteMachine is the transition table for quote requests. Only the customer
// decides, and only after a response.
var QuoteMachine = NewMachine("quote_request",
	Edge[QuoteStatus, QuoteAction]{From: []QuoteStatus{QuotePending}, Action: QuoteActionView, Actor: ActorSystem, To: QuoteViewed},
	Edge[QuoteStatus, QuoteAction]{From: []QuoteStatus{QuotePending, QuoteViewed}, Action: QuoteActionRespond, Actor: ActorTradesperson, To: QuoteResponded},
	Edge[QuoteStatus, QuoteAction]{From: []QuoteStatus{QuoteResponded}, Action: QuoteActionAccept, Actor: ActorCustomer, To: QuoteAccepted},
	Edge[QuoteStatus, QuoteAction]{From: []QuoteStatus{QuoteResponded}, Action: QuoteActionDecline, Actor: ActorCustomer, To: QuoteDeclined},
)

// QuoteRequest asks a tradesperson to price a piece of work. Anonymous
// visitors may send one, in which case CustomerID is nil.
type QuoteRequest struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Reference    string      `db:"reference" json:"reference"`
	ProfileID    uuid.UUID   `db:"profile_id" json:"profile_id"`
	CustomerID   *uuid.UUID  `db:"customer_id" json:"customer_id,omitempty"`
	ContactName  string      `db:"contact_name" json:"contact_name"`
	ContactEmail string      `db:"contact_email" json:"contact_email"`
	TradeType    string      `db:"trade_type" json:"trade_type"`
	Description  string      `db:"description" json:"description"`
	BudgetRange  string      `db:"budget_range" json:"budget_range"`
	Timeframe    string      `db:"timeframe" json:"timeframe"`
	Status       QuoteStatus `db:"status" json:"status"`
	Response     string      `db:"response" json:"response,omitempty"`
	QuotedAmount *int64      `db:"quoted_amount" json:"quoted_amount,omitempty"`
	ViewedAt     *time.Time  `db:"viewed_at" json:"viewed_at,omitempty"`
	RespondedAt  *time.Time  `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Resource describes the quote to the access gate. The recipient's owner is
// resolved by the caller since the quote only stores the profile id.
func (q *QuoteRequest) Resource(profileOwnerID uuid.UUID) Resource {
	owners := []uuid.UUID{profileOwnerID}
	if q.CustomerID != nil {
		owners = append(owners, *q.CustomerID)
	}
	return Resource{Kind: "quote_request", ID: q.ID, OwnerIDs: owners, Private: true}
}

// ActorFor returns the transition actor a caller plays on this quote.
func (q *QuoteRequest) ActorFor(ac AuthContext, profileOwnerID uuid.UUID) (Actor, bool) {
	switch {
	case ac.IsAnonymous():
		return "", false
	case ac.UserID == profileOwnerID:
		return ActorTradesperson, true
	case q.CustomerID != nil && ac.UserID == *q.CustomerID:
		return ActorCustomer, true
	}
	return "", false
}

// CreateQuoteParams contains the parameters for requesting a quote.
type CreateQuoteParams struct {
	ContactName  string `json:"contact_name" validate:"required,max=100"`
	ContactEmail string `json:"contact_email" validate:"required,email,max=254"`
	TradeType    string `json:"trade_type" validate:"required,max=60"`
	Description  string `json:"description" validate:"required,min=20,max=5000"`
	BudgetRange  string `json:"budget_range" validate:"max=60"`
	Timeframe    string `json:"timeframe" validate:"required,oneof=ASAP WITHIN_WEEK WITHIN_MONTH FLEXIBLE"`
}

// RespondQuoteParams contains a tradesperson's answer to a quote request.
type RespondQuoteParams struct {
	Response     string `json:"response" validate:"required,min=10,max=5000"`
	QuotedAmount *int64 `json:"quoted_amount" validate:"omitempty,gte=0"`
}
