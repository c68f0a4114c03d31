// Package domain contains core business types and interfaces.
//
// This file defines bad payer reports published by tradespeople and the
// disputes raised against them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Bad Payer Report
// =============================================================================

// BadPayerStatus represents the publication state of a bad payer report.
type BadPayerStatus string

const (
	BadPayerDraft     BadPayerStatus = "DRAFT"
	BadPayerPublished BadPayerStatus = "PUBLISHED"
	BadPayerDisputed  BadPayerStatus = "DISPUTED"
	BadPayerRemoved   BadPayerStatus = "REMOVED"
)

// IsValid returns true if the status is a recognized value.
func (s BadPayerStatus) IsValid() bool {
	switch s {
	case BadPayerDraft, BadPayerPublished, BadPayerDisputed, BadPayerRemoved:
		return true
	}
	return false
}

// IsPublic reports whether reports in this status are listed publicly.
// A disputed report stays visible until the dispute is decided.
func (s BadPayerStatus) IsPublic() bool {
	return s == BadPayerPublished || s == BadPayerDisputed
}

// BadPayerAction names a bad payer report transition.
type BadPayerAction string

const (
	BadPayerActionPublish   BadPayerAction = "publish"
	BadPayerActionDispute   BadPayerAction = "dispute"
	BadPayerActionRemove    BadPayerAction = "remove"
	BadPayerActionReinstate BadPayerAction = "reinstate"
)

// BadPayerMachine is the transition table for bad payer reports. Disputes
// move the report automatically; the admin's ruling removes or reinstates it.
var BadPayerMachine = NewMachine("bad_payer_report",
	Edge[BadPayerStatus, BadPayerAction]{From: []BadPayerStatus{BadPayerDraft}, Action: BadPayerActionPublish, Actor: ActorTradesperson, To: BadPayerPublished},
	Edge[BadPayerStatus, BadPayerAction]{From: []BadPayerStatus{BadPayerPublished}, Action: BadPayerActionDispute, Actor: ActorSystem, To: BadPayerDisputed},
	Edge[BadPayerStatus, BadPayerAction]{From: []BadPayerStatus{BadPayerDisputed}, Action: BadPayerActionRemove, Actor: ActorSystem, To: BadPayerRemoved},
	Edge[BadPayerStatus, BadPayerAction]{From: []BadPayerStatus{BadPayerDisputed}, Action: BadPayerActionReinstate, Actor: ActorSystem, To: BadPayerPublished},
	Edge[BadPayerStatus, BadPayerAction]{From: []BadPayerStatus{BadPayerPublished}, Action: BadPayerActionRemove, Actor: ActorAdmin, To: BadPayerRemoved},
)

// BadPayerReport warns other tradespeople about a customer who did not pay.
// Amounts are in cents.
type BadPayerReport struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	Reference         string         `db:"reference" json:"reference"`
	ReporterProfileID uuid.UUID      `db:"reporter_profile_id" json:"reporter_profile_id"`
	CustomerName      string         `db:"customer_name" json:"customer_name"`
	Location          string         `db:"location" json:"location"`
	AgreedAmount      int64          `db:"agreed_amount" json:"agreed_amount"`
	AmountOwed        int64          `db:"amount_owed" json:"amount_owed"`
	Description       string         `db:"description" json:"description"`
	Status            BadPayerStatus `db:"status" json:"status"`
	IsPublic          bool           `db:"is_public" json:"is_public"`
	PublishedAt       *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Resource describes the report to the access gate.
func (b *BadPayerReport) Resource(reporterUserID uuid.UUID) Resource {
	return Resource{
		Kind:       "bad_payer_report",
		ID:         b.ID,
		OwnerIDs:   []uuid.UUID{reporterUserID},
		PublicRead: b.IsPublic,
		Private:    true,
	}
}

// CreateBadPayerParams contains the parameters for drafting a bad payer report.
type CreateBadPayerParams struct {
	CustomerName string `json:"customer_name" validate:"required,max=120"`
	Location     string `json:"location" validate:"required,max=120"`
	AgreedAmount int64  `json:"agreed_amount" validate:"gt=0"`
	AmountOwed   int64  `json:"amount_owed" validate:"gt=0,ltefield=AgreedAmount"`
	Description  string `json:"description" validate:"required,min=50,max=5000"`
}

// =============================================================================
// Dispute
// =============================================================================

// DisputeStatus represents the state of a dispute.
type DisputeStatus string

const (
	DisputePending   DisputeStatus = "PENDING"
	DisputeUpheld    DisputeStatus = "UPHELD"
	DisputeDismissed DisputeStatus = "DISMISSED"
)

// IsValid returns true if the status is a recognized value.
func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputePending, DisputeUpheld, DisputeDismissed:
		return true
	}
	return false
}

// DisputeAction names a dispute transition.
type DisputeAction string

const (
	DisputeActionUphold  DisputeAction = "uphold"
	DisputeActionDismiss DisputeAction = "dismiss"
)

// DisputeMachine is the transition table for disputes.
var DisputeMachine = NewMachine("dispute",
	Edge[DisputeStatus, DisputeAction]{From: []DisputeStatus{DisputePending}, Action: DisputeActionUphold, Actor: ActorAdmin, To: DisputeUpheld},
	Edge[DisputeStatus, DisputeAction]{From: []DisputeStatus{DisputePending}, Action: DisputeActionDismiss, Actor: ActorAdmin, To: DisputeDismissed},
)

// Dispute contests a published bad payer report.
type Dispute struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	ReportID    uuid.UUID     `db:"report_id" json:"report_id"`
	DisputantID uuid.UUID     `db:"disputant_id" json:"disputant_id"`
	Reason      string        `db:"reason" json:"reason"`
	Status      DisputeStatus `db:"status" json:"status"`
	Resolution  string        `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy  *uuid.UUID    `db:"resolved_by" json:"-"`
	ResolvedAt  *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// FileDisputeParams contains the parameters for disputing a report.
type FileDisputeParams struct {
	Reason string `json:"reason" validate:"required,min=20,max=5000"`
}

// ResolveDisputeParams carries an admin's ruling on a dispute.
type ResolveDisputeParams struct {
	Action     DisputeAction `json:"action" validate:"required,oneof=uphold dismiss"`
	Resolution string        `json:"resolution" validate:"required,max=2000"`
}
