package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/email"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

type moderationFixture struct {
	store    *memstore.Store
	svc      ModerationService
	reviews  ReviewService
	notifier *email.LogEmailService
	admin    domain.AuthContext
	reporter domain.AuthContext
	profile  *domain.TradesProfile
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()
	store := memstore.New()
	notifier := email.NewLogEmailService(testLogger())
	_, profile := seedTradesperson(t, store, domain.TierFree)
	return &moderationFixture{
		store:    store,
		svc:      NewModerationService(store, notifier, testLogger()),
		reviews:  NewReviewService(store, nil, testLogger()),
		notifier: notifier,
		admin:    seedUser(t, store, domain.RoleAdmin),
		reporter: seedUser(t, store, domain.RoleCustomer),
		profile:  profile,
	}
}

func (f *moderationFixture) approvedReview(t *testing.T, rating int) *domain.Review {
	t.Helper()
	ctx := context.Background()
	review, err := f.reviews.Create(ctx, seedUser(t, f.store, domain.RoleCustomer), f.profile.ID, reviewParams(rating))
	require.NoError(t, err)
	review, err = f.reviews.Moderate(ctx, f.admin, review.ID, domain.ModerateReviewParams{Action: domain.ReviewActionApprove})
	require.NoError(t, err)
	return review
}

func (f *moderationFixture) report(t *testing.T, kind domain.ReportTargetType, target uuid.UUID) *domain.Report {
	t.Helper()
	report, err := f.svc.FileReport(context.Background(), f.reporter, domain.FileReportParams{
		TargetType: kind,
		TargetID:   target,
		Reason:     "ABUSE",
	})
	require.NoError(t, err)
	return report
}

func TestApplyModeration_DismissWithoutTextUsesDefault(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	report := f.report(t, domain.TargetProfile, f.profile.ID)

	got, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{Action: domain.ModerationDismiss})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportDismissed, got.Status)
	assert.Equal(t, domain.DefaultDismissResolution, got.Resolution)
	assert.Equal(t, domain.ContentActionNone, got.ContentAction)
	require.Len(t, f.notifier.Sent(), 1)

	profile, err := f.store.GetProfileByID(ctx, f.profile.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsActive)
}

func TestApplyModeration_ResolveRequiresResolution(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	report := f.report(t, domain.TargetProfile, f.profile.ID)

	_, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{Action: domain.ModerationResolve})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "resolution")
	assert.Contains(t, verr.Fields, "content_action")

	_, err = f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:     domain.ModerationResolve,
		Resolution: "Confirmed fake profile.",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"content_action": "content_action is required to resolve a report; use none to leave the content",
	}, verr.Fields)

	stored, err := f.store.GetReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, stored.Status)
}

func TestApplyModeration_ResolveRejectsReviewAndRecomputes(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	f.approvedReview(t, 5)
	bad := f.approvedReview(t, 1)

	p, err := f.store.GetProfileByID(ctx, f.profile.ID)
	require.NoError(t, err)
	require.Equal(t, 2, p.ReviewCount)

	report := f.report(t, domain.TargetReview, bad.ID)
	got, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "Review breaches guidelines",
		ContentAction: domain.ContentActionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportResolved, got.Status)

	review, err := f.store.GetReviewByID(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, review.Status)

	p, err = f.store.GetProfileByID(ctx, f.profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReviewCount)
	assert.InDelta(t, 5.0, p.AverageRating, 0.001)
}

func TestApplyModeration_CascadeIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	review := f.approvedReview(t, 1)
	report := f.report(t, domain.TargetReview, review.ID)

	f.store.FailOn("UpdateProfileRating", assert.AnError)
	_, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "Review breaches guidelines",
		ContentAction: domain.ContentActionReject,
	})
	requireCode(t, err, domain.EINTERNAL)
	f.store.FailOn("UpdateProfileRating", nil)

	storedReport, err := f.store.GetReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, storedReport.Status)

	storedReview, err := f.store.GetReviewByID(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, storedReview.Status)
}

func TestApplyModeration_DeactivateProfile(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	report := f.report(t, domain.TargetProfile, f.profile.ID)

	_, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "Fraudulent listing",
		ContentAction: domain.ContentActionDeactivate,
	})
	require.NoError(t, err)

	p, err := f.store.GetProfileByID(ctx, f.profile.ID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func TestApplyModeration_DeactivateMissingProfile(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)

	report := &domain.Report{
		ID:         uuid.New(),
		ReporterID: f.reporter.UserID,
		TargetType: domain.TargetProfile,
		TargetID:   uuid.New(),
		Reason:     "FAKE",
		Status:     domain.ReportPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateReport(ctx, report))

	_, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "Profile was fake.",
		ContentAction: domain.ContentActionDeactivate,
	})
	requireCode(t, err, domain.ENOTFOUND)

	stored, err := f.store.GetReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, stored.Status)
}

func TestApplyModeration_DeleteMessage(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	sender := seedUser(t, f.store, domain.RoleTradesperson)
	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    sender.UserID,
		RecipientID: f.reporter.UserID,
		Body:        "abusive text",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateMessage(ctx, msg))
	report := f.report(t, domain.TargetMessage, msg.ID)

	_, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "Abusive message removed",
		ContentAction: domain.ContentActionDelete,
	})
	require.NoError(t, err)

	stored, err := f.store.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
}

func TestApplyModeration_Rules(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	report := f.report(t, domain.TargetProfile, f.profile.ID)

	_, err := f.svc.ApplyModeration(ctx, f.reporter, report.ID, domain.ModerationPayload{Action: domain.ModerationDismiss})
	requireCode(t, err, domain.EFORBIDDEN)

	_, err = f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "wrong action",
		ContentAction: domain.ContentActionDelete,
	})
	require.True(t, domain.IsValidation(err))

	got, err := f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{Action: domain.ModerationInvestigate})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportInvestigating, got.Status)

	_, err = f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{Action: domain.ModerationInvestigate})
	requireCode(t, err, domain.ETRANSITION)

	_, err = f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{Action: domain.ModerationDismiss, Resolution: "Duplicate"})
	require.NoError(t, err)

	_, err = f.svc.ApplyModeration(ctx, f.admin, report.ID, domain.ModerationPayload{
		Action:        domain.ModerationResolve,
		Resolution:    "too late",
		ContentAction: domain.ContentActionNone,
	})
	requireCode(t, err, domain.ETRANSITION)
}

func TestFileReport(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)

	_, err := f.svc.FileReport(ctx, domain.AuthContext{}, domain.FileReportParams{
		TargetType: domain.TargetProfile, TargetID: f.profile.ID, Reason: "SPAM",
	})
	requireCode(t, err, domain.EUNAUTHORIZED)

	_, err = f.svc.FileReport(ctx, f.reporter, domain.FileReportParams{
		TargetType: domain.TargetReview, TargetID: uuid.New(), Reason: "SPAM",
	})
	requireCode(t, err, domain.ENOTFOUND)

	reports, err := f.svc.ListReports(ctx, f.admin, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}
