// Package domain contains core business types and interfaces.
//
// This file defines a tradesperson's application to a job.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus represents the lifecycle state of a job application.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "PENDING"
	ApplicationViewed      ApplicationStatus = "VIEWED"
	ApplicationShortlisted ApplicationStatus = "SHORTLISTED"
	ApplicationAccepted    ApplicationStatus = "ACCEPTED"
	ApplicationDeclined    ApplicationStatus = "DECLINED"
	ApplicationWithdrawn   ApplicationStatus = "WITHDRAWN"
)

// String returns the string representation of the status.
func (s ApplicationStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationPending, ApplicationViewed, ApplicationShortlisted,
		ApplicationAccepted, ApplicationDeclined, ApplicationWithdrawn:
		return true
	}
	return false
}

// ApplicationAction names a job application transition.
type ApplicationAction string

const (
	ApplicationActionView      ApplicationAction = "view"
	ApplicationActionShortlist ApplicationAction = "shortlist"
	ApplicationActionDecline   ApplicationAction = "decline"
	ApplicationActionAccept    ApplicationAction = "accept"
	ApplicationActionWithdraw  ApplicationAction = "withdraw"
)

var applicationUndecided = []ApplicationStatus{ApplicationPending, ApplicationViewed, ApplicationShortlisted}

// ApplicationMachine is the transition table for job applications.
// Accepting one application leaves its siblings untouched.
var ApplicationMachine = NewMachine("job_application",
	Edge[ApplicationStatus, ApplicationAction]{From: []ApplicationStatus{ApplicationPending}, Action: ApplicationActionView, Actor: ActorSystem, To: ApplicationViewed},
	Edge[ApplicationStatus, ApplicationAction]{From: []ApplicationStatus{ApplicationPending, ApplicationViewed}, Action: ApplicationActionShortlist, Actor: ActorCustomer, To: ApplicationShortlisted},
	Edge[ApplicationStatus, ApplicationAction]{From: applicationUndecided, Action: ApplicationActionDecline, Actor: ActorCustomer, To: ApplicationDeclined},
	Edge[ApplicationStatus, ApplicationAction]{From: applicationUndecided, Action: ApplicationActionAccept, Actor: ActorCustomer, To: ApplicationAccepted},
	Edge[ApplicationStatus, ApplicationAction]{From: applicationUndecided, Action: ApplicationActionWithdraw, Actor: ActorTradesperson, To: ApplicationWithdrawn},
)

// JobApplication is a profile's bid on a job. A profile applies to a job at most once.
type JobApplication struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	JobID             uuid.UUID         `db:"job_id" json:"job_id"`
	ProfileID         uuid.UUID         `db:"profile_id" json:"profile_id"`
	Status            ApplicationStatus `db:"status" json:"status"`
	CoverLetter       string            `db:"cover_letter" json:"cover_letter"`
	ProposedBudget    *int64            `db:"proposed_budget" json:"proposed_budget,omitempty"`
	ProposedStartDate *time.Time        `db:"proposed_start_date" json:"proposed_start_date,omitempty"`
	ViewedAt          *time.Time        `db:"viewed_at" json:"viewed_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplyParams contains the parameters for applying to a job.
type ApplyParams struct {
	CoverLetter       string     `json:"cover_letter" validate:"required,min=20,max=5000"`
	ProposedBudget    *int64     `json:"proposed_budget" validate:"omitempty,gte=0"`
	ProposedStartDate *time.Time `json:"proposed_start_date"`
}

// StatusChange is a conditional status update: it only applies while the
// row is still in From, so a concurrent change surfaces as a stale transition.
type StatusChange[S ~string] struct {
	ID   uuid.UUID
	From S
	To   S
	At   time.Time
}
