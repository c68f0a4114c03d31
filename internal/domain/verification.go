// Package domain contains core business types and interfaces.
//
// This file defines credential verifications submitted by tradespeople.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationType is the kind of credential being verified.
type VerificationType string

const (
	VerificationIdentity      VerificationType = "IDENTITY"
	VerificationInsurance     VerificationType = "INSURANCE"
	VerificationLicense       VerificationType = "LICENSE"
	VerificationQualification VerificationType = "QUALIFICATION"
)

// IsValid returns true if the type is a recognized value.
func (t VerificationType) IsValid() bool {
	switch t {
	case VerificationIdentity, VerificationInsurance, VerificationLicense, VerificationQualification:
		return true
	}
	return false
}

// VerificationStatus represents the review state of a verification.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// IsValid returns true if the status is a recognized value.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// VerificationAction names a verification transition.
type VerificationAction string

const (
	VerificationActionApprove VerificationAction = "approve"
	VerificationActionReject  VerificationAction = "reject"
)

// VerificationMachine is the transition table for verifications.
var VerificationMachine = NewMachine("verification",
	Edge[VerificationStatus, VerificationAction]{From: []VerificationStatus{VerificationPending}, Action: VerificationActionApprove, Actor: ActorAdmin, To: VerificationApproved},
	Edge[VerificationStatus, VerificationAction]{From: []VerificationStatus{VerificationPending}, Action: VerificationActionReject, Actor: ActorAdmin, To: VerificationRejected},
)

// Verification is a document submitted to earn a badge.
type Verification struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	ProfileID       uuid.UUID          `db:"profile_id" json:"profile_id"`
	Type            VerificationType   `db:"type" json:"type"`
	Status          VerificationStatus `db:"status" json:"status"`
	DocumentKey     string             `db:"document_key" json:"-"`
	ExpiresAt       *time.Time         `db:"expires_at" json:"expires_at,omitempty"`
	Notes           string             `db:"notes" json:"notes,omitempty"`
	RejectionReason string             `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedBy      *uuid.UUID         `db:"reviewed_by" json:"-"`
	ReviewedAt      *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
}

// IsCurrent reports whether the verification counts as a badge at now.
func (v *Verification) IsCurrent(now time.Time) bool {
	return v.Status == VerificationApproved && (v.ExpiresAt == nil || now.Before(*v.ExpiresAt))
}

// SubmitVerificationParams carries an uploaded verification document.
type SubmitVerificationParams struct {
	Type        VerificationType
	Filename    string
	ContentType string
	Data        []byte
}

// ModerateVerificationParams carries an admin's decision on a verification.
type ModerateVerificationParams struct {
	Action    VerificationAction `json:"action" validate:"required,oneof=approve reject"`
	ExpiresAt *time.Time         `json:"expires_at"`
	Notes     string             `json:"notes" validate:"max=1000"`
	Reason    string             `json:"reason" validate:"required_if=Action reject,max=1000"`
}
