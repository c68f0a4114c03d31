package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		action  JobAction
		actor   Actor
		want    JobStatus
		wantErr bool
	}{
		{"customer closes open job", JobOpen, JobActionClose, ActorCustomer, JobClosed, false},
		{"accept starts open job", JobOpen, JobActionStart, ActorSystem, JobInProgress, false},
		{"customer completes in-progress job", JobInProgress, JobActionComplete, ActorCustomer, JobCompleted, false},
		{"customer closes in-progress job", JobInProgress, JobActionClose, ActorCustomer, JobClosed, false},
		{"open job lapses", JobOpen, JobActionExpire, ActorSystem, JobExpired, false},

		{"customer cannot start directly", JobOpen, JobActionStart, ActorCustomer, JobOpen, true},
		{"open job cannot complete", JobOpen, JobActionComplete, ActorCustomer, JobOpen, true},
		{"closed job is terminal", JobClosed, JobActionClose, ActorCustomer, JobClosed, true},
		{"completed job cannot close", JobCompleted, JobActionClose, ActorCustomer, JobCompleted, true},
		{"tradesperson cannot close", JobOpen, JobActionClose, ActorTradesperson, JobOpen, true},
		{"expired job cannot close", JobExpired, JobActionClose, ActorCustomer, JobExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JobMachine.Next(tt.from, tt.action, tt.actor)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidTransition(err))
				assert.Equal(t, "Cannot perform this action.", ErrorMessage(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobMachine_NoPathBackToOpen(t *testing.T) {
	statuses := []JobStatus{JobOpen, JobInProgress, JobCompleted, JobClosed, JobExpired}
	actions := []JobAction{JobActionClose, JobActionStart, JobActionComplete, JobActionExpire}
	actors := []Actor{ActorCustomer, ActorTradesperson, ActorAdmin, ActorSystem}

	for _, from := range statuses {
		for _, action := range actions {
			for _, actor := range actors {
				got, err := JobMachine.Next(from, action, actor)
				if err == nil {
					assert.NotEqual(t, JobOpen, got, "%s -%s/%s-> OPEN", from, action, actor)
				}
			}
		}
	}

	assert.True(t, JobMachine.IsTerminal(JobClosed))
	assert.True(t, JobMachine.IsTerminal(JobCompleted))
	assert.False(t, JobMachine.IsTerminal(JobOpen))
}

func TestApplicationMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    ApplicationStatus
		action  ApplicationAction
		actor   Actor
		want    ApplicationStatus
		wantErr bool
	}{
		{"first read marks viewed", ApplicationPending, ApplicationActionView, ActorSystem, ApplicationViewed, false},
		{"shortlist pending", ApplicationPending, ApplicationActionShortlist, ActorCustomer, ApplicationShortlisted, false},
		{"shortlist viewed", ApplicationViewed, ApplicationActionShortlist, ActorCustomer, ApplicationShortlisted, false},
		{"decline shortlisted", ApplicationShortlisted, ApplicationActionDecline, ActorCustomer, ApplicationDeclined, false},
		{"accept shortlisted", ApplicationShortlisted, ApplicationActionAccept, ActorCustomer, ApplicationAccepted, false},
		{"accept pending", ApplicationPending, ApplicationActionAccept, ActorCustomer, ApplicationAccepted, false},
		{"withdraw viewed", ApplicationViewed, ApplicationActionWithdraw, ActorTradesperson, ApplicationWithdrawn, false},

		{"viewed is not re-viewed", ApplicationViewed, ApplicationActionView, ActorSystem, ApplicationViewed, true},
		{"accepted is terminal for customer", ApplicationAccepted, ApplicationActionDecline, ActorCustomer, ApplicationAccepted, true},
		{"shortlisted cannot be re-shortlisted", ApplicationShortlisted, ApplicationActionShortlist, ActorCustomer, ApplicationShortlisted, true},
		{"customer cannot withdraw", ApplicationPending, ApplicationActionWithdraw, ActorCustomer, ApplicationPending, true},
		{"tradesperson cannot accept", ApplicationPending, ApplicationActionAccept, ActorTradesperson, ApplicationPending, true},
		{"declined cannot be withdrawn", ApplicationDeclined, ApplicationActionWithdraw, ActorTradesperson, ApplicationDeclined, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplicationMachine.Next(tt.from, tt.action, tt.actor)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteMachine(t *testing.T) {
	tests := []struct {
		from    QuoteStatus
		action  QuoteAction
		actor   Actor
		want    QuoteStatus
		wantErr bool
	}{
		{QuotePending, QuoteActionView, ActorSystem, QuoteViewed, false},
		{QuotePending, QuoteActionRespond, ActorTradesperson, QuoteResponded, false},
		{QuoteViewed, QuoteActionRespond, ActorTradesperson, QuoteResponded, false},
		{QuoteResponded, QuoteActionAccept, ActorCustomer, QuoteAccepted, false},
		{QuoteResponded, QuoteActionDecline, ActorCustomer, QuoteDeclined, false},

		{QuotePending, QuoteActionAccept, ActorCustomer, QuotePending, true},
		{QuoteResponded, QuoteActionRespond, ActorTradesperson, QuoteResponded, true},
		{QuoteAccepted, QuoteActionDecline, ActorCustomer, QuoteAccepted, true},
		{QuoteViewed, QuoteActionRespond, ActorCustomer, QuoteViewed, true},
		{QuotePending, QuoteActionDecline, ActorTradesperson, QuotePending, true},
		{QuoteViewed, QuoteActionDecline, ActorTradesperson, QuoteViewed, true},
		{QuoteViewed, QuoteActionDecline, ActorCustomer, QuoteViewed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action)+"_"+string(tt.actor), func(t *testing.T) {
			got, err := QuoteMachine.Next(tt.from, tt.action, tt.actor)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReviewMachine(t *testing.T) {
	tests := []struct {
		from    ReviewStatus
		action  ReviewAction
		want    ReviewStatus
		wantErr bool
	}{
		{ReviewPending, ReviewActionApprove, ReviewApproved, false},
		{ReviewPending, ReviewActionReject, ReviewRejected, false},
		{ReviewPending, ReviewActionFlag, ReviewFlagged, false},
		{ReviewFlagged, ReviewActionReject, ReviewRejected, false},
		{ReviewApproved, ReviewActionReject, ReviewRejected, false},
		{ReviewRejected, ReviewActionApprove, ReviewApproved, false},

		{ReviewApproved, ReviewActionApprove, ReviewApproved, true},
		{ReviewFlagged, ReviewActionFlag, ReviewFlagged, true},
		{ReviewFlagged, ReviewActionApprove, ReviewFlagged, true},
		{ReviewApproved, ReviewActionFlag, ReviewApproved, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			got, err := ReviewMachine.Next(tt.from, tt.action, ActorAdmin)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ReviewMachine.Next(ReviewPending, ReviewActionApprove, ActorCustomer)
	assert.Error(t, err, "only admins moderate reviews")
}

func TestAffectsRating(t *testing.T) {
	assert.True(t, AffectsRating(ReviewPending, ReviewApproved))
	assert.True(t, AffectsRating(ReviewApproved, ReviewRejected))
	assert.False(t, AffectsRating(ReviewPending, ReviewRejected))
	assert.False(t, AffectsRating(ReviewPending, ReviewFlagged))
}

func TestReportAndDisputeMachines(t *testing.T) {
	to, err := ReportMachine.Next(ReportPending, ModerationInvestigate, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, ReportInvestigating, to)

	to, err = ReportMachine.Next(ReportInvestigating, ModerationResolve, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, ReportResolved, to)

	to, err = ReportMachine.Next(ReportPending, ModerationDismiss, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, ReportDismissed, to)

	_, err = ReportMachine.Next(ReportDismissed, ModerationInvestigate, ActorAdmin)
	assert.True(t, IsInvalidTransition(err), "dismissed reports are not reopened")

	_, err = ReportMachine.Next(ReportInvestigating, ModerationInvestigate, ActorAdmin)
	assert.Error(t, err)

	dispute, err := DisputeMachine.Next(DisputePending, DisputeActionUphold, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, DisputeUpheld, dispute)

	_, err = DisputeMachine.Next(DisputeUpheld, DisputeActionDismiss, ActorAdmin)
	assert.Error(t, err)
}

func TestVerificationAndBadPayerMachines(t *testing.T) {
	to, err := VerificationMachine.Next(VerificationPending, VerificationActionApprove, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, VerificationApproved, to)

	_, err = VerificationMachine.Next(VerificationRejected, VerificationActionApprove, ActorAdmin)
	assert.Error(t, err)

	report, err := BadPayerMachine.Next(BadPayerDraft, BadPayerActionPublish, ActorTradesperson)
	require.NoError(t, err)
	assert.Equal(t, BadPayerPublished, report)

	report, err = BadPayerMachine.Next(BadPayerPublished, BadPayerActionDispute, ActorSystem)
	require.NoError(t, err)
	assert.Equal(t, BadPayerDisputed, report)

	report, err = BadPayerMachine.Next(BadPayerDisputed, BadPayerActionReinstate, ActorSystem)
	require.NoError(t, err)
	assert.Equal(t, BadPayerPublished, report)

	_, err = BadPayerMachine.Next(BadPayerDraft, BadPayerActionDispute, ActorSystem)
	assert.Error(t, err, "drafts cannot be disputed")
}

func TestMachine_ErrorCarriesDetails(t *testing.T) {
	_, err := JobMachine.Next(JobClosed, JobActionClose, ActorCustomer)
	require.Error(t, err)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "job", te.Entity)
	assert.Equal(t, "CLOSED", te.From)
	assert.Equal(t, "close", te.Action)
	assert.Equal(t, ActorCustomer, te.Actor)
	assert.Equal(t, "job.transition", ErrorOp(err))
}

func TestMachine_Actions(t *testing.T) {
	assert.Equal(t,
		[]ApplicationAction{ApplicationActionAccept, ApplicationActionDecline, ApplicationActionShortlist},
		ApplicationMachine.Actions(ApplicationViewed, ActorCustomer))
	assert.Empty(t, ApplicationMachine.Actions(ApplicationAccepted, ActorCustomer))
}

func TestNewMachine_PanicsOnDuplicateEdge(t *testing.T) {
	assert.Panics(t, func() {
		NewMachine("dup",
			Edge[JobStatus, JobAction]{From: []JobStatus{JobOpen}, Action: JobActionClose, Actor: ActorCustomer, To: JobClosed},
			Edge[JobStatus, JobAction]{From: []JobStatus{JobOpen}, Action: JobActionClose, Actor: ActorCustomer, To: JobExpired},
		)
	})
}
