// Package domain contains core business types and interfaces.
//
// This file defines user reports against content and the moderation actions
// an admin takes on them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReportTargetType is the kind of content a report is about.
type ReportTargetType string

const (
	TargetReview  ReportTargetType = "REVIEW"
	TargetProfile ReportTargetType = "PROFILE"
	TargetMessage ReportTargetType = "MESSAGE"
)

// IsValid returns true if the target type is a recognized value.
func (t ReportTargetType) IsValid() bool {
	switch t {
	case TargetReview, TargetProfile, TargetMessage:
		return true
	}
	return false
}

// ReportStatus represents the moderation state of a report.
type ReportStatus string

const (
	ReportPending       ReportStatus = "PENDING"
	ReportInvestigating ReportStatus = "INVESTIGATING"
	ReportResolved      ReportStatus = "RESOLVED"
	ReportDismissed     ReportStatus = "DISMISSED"
)

// IsValid returns true if the status is a recognized value.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportPending, ReportInvestigating, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// ModerationAction names a report transition.
type ModerationAction string

const (
	ModerationInvestigate ModerationAction = "investigate"
	ModerationResolve     ModerationAction = "resolve"
	ModerationDismiss     ModerationAction = "dismiss"
)

// ReportMachine is the transition table for reports.
var ReportMachine = NewMachine("report",
	Edge[ReportStatus, ModerationAction]{From: []ReportStatus{ReportPending}, Action: ModerationInvestigate, Actor: ActorAdmin, To: ReportInvestigating},
	Edge[ReportStatus, ModerationAction]{From: []ReportStatus{ReportPending, ReportInvestigating}, Action: ModerationResolve, Actor: ActorAdmin, To: ReportResolved},
	Edge[ReportStatus, ModerationAction]{From: []ReportStatus{ReportPending, ReportInvestigating}, Action: ModerationDismiss, Actor: ActorAdmin, To: ReportDismissed},
)

// ContentAction is the side effect applied to reported content on resolve.
type ContentAction string

const (
	ContentActionNone       ContentAction = "none"
	ContentActionReject     ContentAction = "reject"
	ContentActionDeactivate ContentAction = "deactivate"
	ContentActionDelete     ContentAction = "delete"
)

// ContentActionFor returns the only non-trivial action applicable to a target type.
func ContentActionFor(t ReportTargetType) ContentAction {
	switch t {
	case TargetReview:
		return ContentActionReject
	case TargetProfile:
		return ContentActionDeactivate
	case TargetMessage:
		return ContentActionDelete
	}
	return ContentActionNone
}

// AppliesTo reports whether the action can be executed against a target type.
func (a ContentAction) AppliesTo(t ReportTargetType) bool {
	return a == ContentActionNone || a == ContentActionFor(t)
}

// DefaultDismissResolution is recorded when a report is dismissed without text.
const DefaultDismissResolution = "Dismissed by moderator: no action required."

// Report is a user complaint about a review, profile or message.
type Report struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	ReporterID    uuid.UUID        `db:"reporter_id" json:"reporter_id"`
	TargetType    ReportTargetType `db:"target_type" json:"target_type"`
	TargetID      uuid.UUID        `db:"target_id" json:"target_id"`
	Reason        string           `db:"reason" json:"reason"`
	Details       string           `db:"details" json:"details,omitempty"`
	Status        ReportStatus     `db:"status" json:"status"`
	Resolution    string           `db:"resolution" json:"resolution,omitempty"`
	ContentAction ContentAction    `db:"content_action" json:"content_action,omitempty"`
	HandledBy     *uuid.UUID       `db:"handled_by" json:"handled_by,omitempty"`
	HandledAt     *time.Time       `db:"handled_at" json:"handled_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// FileReportParams contains the parameters for reporting content.
type FileReportParams struct {
	TargetType ReportTargetType `json:"target_type" validate:"required,oneof=REVIEW PROFILE MESSAGE"`
	TargetID   uuid.UUID        `json:"target_id" validate:"required"`
	Reason     string           `json:"reason" validate:"required,oneof=SPAM ABUSE FAKE INAPPROPRIATE OTHER"`
	Details    string           `json:"details" validate:"max=2000"`
}

// ModerationPayload carries the admin's input for applyModeration.
type ModerationPayload struct {
	Action        ModerationAction `json:"action" validate:"required,oneof=investigate resolve dismiss"`
	Resolution    string           `json:"resolution" validate:"max=2000"`
	ContentAction ContentAction    `json:"content_action" validate:"omitempty,oneof=none reject deactivate delete"`
}

// ReportFilter narrows the admin report queue.
type ReportFilter struct {
	Status ReportStatus `form:"status"`
	Limit  int          `form:"limit"`
	Offset int          `form:"offset"`
}
