// Package domain contains core business types and interfaces.
//
// This file defines the Job posted by a customer and its lifecycle.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Job Status
// =============================================================================

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobOpen       JobStatus = "OPEN"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobClosed     JobStatus = "CLOSED"
	JobExpired    JobStatus = "EXPIRED"
)

// String returns the string representation of the status.
func (s JobStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobOpen, JobInProgress, JobCompleted, JobClosed, JobExpired:
		return true
	}
	return false
}

// JobAction names a job transition.
type JobAction string

const (
	JobActionClose    JobAction = "close"
	JobActionStart    JobAction = "start"
	JobActionComplete JobAction = "complete"
	JobActionExpire   JobAction = "expire"
)

// JobMachine is the transition table for jobs.
// Starting happens when the customer accepts an application.
var JobMachine = NewMachine("job",
	Edge[JobStatus, JobAction]{From: []JobStatus{JobOpen}, Action: JobActionStart, Actor: ActorSystem, To: JobInProgress},
	Edge[JobStatus, JobAction]{From: []JobStatus{JobInProgress}, Action: JobActionComplete, Actor: ActorCustomer, To: JobCompleted},
	Edge[JobStatus, JobAction]{From: []JobStatus{JobOpen, JobInProgress}, Action: JobActionClose, Actor: ActorCustomer, To: JobClosed},
	Edge[JobStatus, JobAction]{From: []JobStatus{JobOpen}, Action: JobActionExpire, Actor: ActorSystem, To: JobExpired},
)

// DefaultJobLifetime is how long a job stays open without activity.
const DefaultJobLifetime = 60 * 24 * time.Hour

// =============================================================================
// Job Domain Type
// =============================================================================

// Job is a piece of work posted by a customer.
type Job struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CustomerID  uuid.UUID  `db:"customer_id" json:"customer_id"`
	TradeID     uuid.UUID  `db:"trade_id" json:"trade_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Location    string     `db:"location" json:"location"`
	BudgetMin   *int64     `db:"budget_min" json:"budget_min,omitempty"`
	BudgetMax   *int64     `db:"budget_max" json:"budget_max,omitempty"`
	Timeframe   string     `db:"timeframe" json:"timeframe"`
	Status      JobStatus  `db:"status" json:"status"`
	ViewCount   int        `db:"view_count" json:"view_count"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOpen returns true if the job accepts applications.
func (j *Job) IsOpen() bool {
	return j.Status == JobOpen
}

// IsLapsed reports whether an open job has passed its expiry.
func (j *Job) IsLapsed(now time.Time) bool {
	return j.Status == JobOpen && j.ExpiresAt != nil && !now.Before(*j.ExpiresAt)
}

// Resource describes the job to the access gate. A job is private to its
// customer, but tradespeople may read it while it is open.
func (j *Job) Resource() Resource {
	res := Resource{
		Kind:     "job",
		ID:       j.ID,
		OwnerIDs: []uuid.UUID{j.CustomerID},
		Private:  true,
	}
	if j.Status == JobOpen {
		res.ReadRoles = []Role{RoleTradesperson}
	}
	return res
}

// ActorFor returns the transition actor a caller plays on this job.
func (j *Job) ActorFor(ac AuthContext) (Actor, bool) {
	if !ac.IsAnonymous() && ac.UserID == j.CustomerID {
		return ActorCustomer, true
	}
	return "", false
}

// =============================================================================
// Job Service Parameters
// =============================================================================

// CreateJobParams contains the parameters for posting a job.
type CreateJobParams struct {
	TradeID     uuid.UUID `json:"trade_id" validate:"required"`
	Title       string    `json:"title" validate:"required,min=5,max=120"`
	Description string    `json:"description" validate:"required,min=20,max=5000"`
	Location    string    `json:"location" validate:"required,max=120"`
	BudgetMin   *int64    `json:"budget_min" validate:"omitempty,gte=0"`
	BudgetMax   *int64    `json:"budget_max" validate:"omitempty,gte=0"`
	Timeframe   string    `json:"timeframe" validate:"required,oneof=ASAP WITHIN_WEEK WITHIN_MONTH FLEXIBLE"`
}

// JobFilter narrows the open-job feed shown to a tradesperson.
type JobFilter struct {
	TradeID   *uuid.UUID `form:"trade"`
	Location  string     `form:"location"`
	MinBudget *int64     `form:"min_budget"`
	Limit     int        `form:"limit"`
	Offset    int        `form:"offset"`
}

// Normalize applies paging defaults and caps.
func (f *JobFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
