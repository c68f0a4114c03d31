package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

func badPayerParams() domain.CreateBadPayerParams {
	return domain.CreateBadPayerParams{
		CustomerName: "J. Smith",
		Location:     "Harrogate",
		AgreedAmount: 240000,
		AmountOwed:   120000,
		Description:  strings.Repeat("Second stage invoice unpaid after ninety days. ", 2),
	}
}

func publishedBadPayer(t *testing.T, store *memstore.Store, svc BadPayerService) (domain.AuthContext, *domain.BadPayerReport) {
	t.Helper()
	ctx := context.Background()
	tp, _ := seedTradesperson(t, store, domain.TierPro)
	report, err := svc.Create(ctx, tp, badPayerParams())
	require.NoError(t, err)
	report, err = svc.Publish(ctx, tp, report.ID)
	require.NoError(t, err)
	return tp, report
}

func TestBadPayer_DraftAndPublish(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewBadPayerService(store, testLogger())

	tp, _ := seedTradesperson(t, store, domain.TierPro)
	other, _ := seedTradesperson(t, store, domain.TierPro)

	report, err := svc.Create(ctx, tp, badPayerParams())
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerDraft, report.Status)
	assert.False(t, report.IsPublic)
	assert.True(t, strings.HasPrefix(report.Reference, "BP-"))

	_, err = svc.Get(ctx, other, report.ID)
	requireCode(t, err, domain.ENOTFOUND)

	_, err = svc.Publish(ctx, other, report.ID)
	requireCode(t, err, domain.ENOTFOUND)

	report, err = svc.Publish(ctx, tp, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerPublished, report.Status)
	assert.True(t, report.IsPublic)
	assert.NotNil(t, report.PublishedAt)

	_, err = svc.Get(ctx, domain.AuthContext{}, report.ID)
	require.NoError(t, err)

	public, err := svc.ListPublic(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)

	_, err = svc.Publish(ctx, tp, report.ID)
	requireCode(t, err, domain.ETRANSITION)
}

func TestBadPayer_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewBadPayerService(store, testLogger())
	tp, _ := seedTradesperson(t, store, domain.TierPro)

	params := badPayerParams()
	params.AmountOwed = params.AgreedAmount + 1
	_, err := svc.Create(ctx, tp, params)
	require.True(t, domain.IsValidation(err))

	customer := seedUser(t, store, domain.RoleCustomer)
	_, err = svc.Create(ctx, customer, badPayerParams())
	requireCode(t, err, domain.EFORBIDDEN)
}

func TestBadPayer_DisputeUpheldRemovesReport(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewBadPayerService(store, testLogger())
	admin := seedUser(t, store, domain.RoleAdmin)
	disputant := seedUser(t, store, domain.RoleCustomer)
	tp, report := publishedBadPayer(t, store, svc)

	_, err := svc.FileDispute(ctx, tp, report.ID, domain.FileDisputeParams{Reason: "I am disputing my own report here."})
	requireCode(t, err, domain.EINVALID)

	dispute, err := svc.FileDispute(ctx, disputant, report.ID, domain.FileDisputeParams{
		Reason: "The work was never finished so nothing is owed.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputePending, dispute.Status)

	stored, err := store.GetBadPayerReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerDisputed, stored.Status)
	assert.True(t, stored.IsPublic)

	_, err = svc.ResolveDispute(ctx, disputant, dispute.ID, domain.ResolveDisputeParams{Action: domain.DisputeActionUphold, Resolution: "x"})
	requireCode(t, err, domain.EFORBIDDEN)

	resolved, err := svc.ResolveDispute(ctx, admin, dispute.ID, domain.ResolveDisputeParams{
		Action:     domain.DisputeActionUphold,
		Resolution: "Evidence supports the customer.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeUpheld, resolved.Status)

	stored, err = store.GetBadPayerReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerRemoved, stored.Status)
	assert.False(t, stored.IsPublic)

	_, err = svc.ResolveDispute(ctx, admin, dispute.ID, domain.ResolveDisputeParams{
		Action:     domain.DisputeActionDismiss,
		Resolution: "Second ruling",
	})
	requireCode(t, err, domain.ETRANSITION)
}

func TestBadPayer_DisputeDismissedReinstates(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewBadPayerService(store, testLogger())
	admin := seedUser(t, store, domain.RoleAdmin)
	disputant := seedUser(t, store, domain.RoleCustomer)
	_, report := publishedBadPayer(t, store, svc)

	dispute, err := svc.FileDispute(ctx, disputant, report.ID, domain.FileDisputeParams{
		Reason: "I paid in cash and have the receipt to prove it.",
	})
	require.NoError(t, err)

	_, err = svc.ResolveDispute(ctx, admin, dispute.ID, domain.ResolveDisputeParams{
		Action:     domain.DisputeActionDismiss,
		Resolution: "No receipt was provided.",
	})
	require.NoError(t, err)

	stored, err := store.GetBadPayerReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerPublished, stored.Status)
	assert.True(t, stored.IsPublic)
}

func TestBadPayer_DisputeRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewBadPayerService(store, testLogger())
	disputant := seedUser(t, store, domain.RoleCustomer)
	_, report := publishedBadPayer(t, store, svc)

	store.FailOn("CreateDispute", assert.AnError)
	_, err := svc.FileDispute(ctx, disputant, report.ID, domain.FileDisputeParams{
		Reason: "The work was never finished so nothing is owed.",
	})
	requireCode(t, err, domain.EINTERNAL)

	stored, err := store.GetBadPayerReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerPublished, stored.Status)
}

func TestBadPayer_AdminRemove(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewBadPayerService(store, testLogger())
	admin := seedUser(t, store, domain.RoleAdmin)
	tp, report := publishedBadPayer(t, store, svc)

	_, err := svc.Remove(ctx, tp, report.ID)
	requireCode(t, err, domain.EFORBIDDEN)

	got, err := svc.Remove(ctx, admin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BadPayerRemoved, got.Status)

	public, err := svc.ListPublic(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, public)
}
