package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
	"github.com/DukeRupert/tradeslink/internal/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	files, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, testLogger())
	require.NoError(t, err)
	return files
}

func insuranceDoc() domain.SubmitVerificationParams {
	return domain.SubmitVerificationParams{
		Type:        domain.VerificationInsurance,
		Filename:    "insurance.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"),
	}
}

func TestVerification_ApproveSetsVerified(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewVerificationService(store, newTestStorage(t), testLogger())

	tp, profile := seedTradesperson(t, store, domain.TierFree)
	admin := seedUser(t, store, domain.RoleAdmin)

	v, err := svc.Submit(ctx, tp, insuranceDoc())
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, v.Status)

	pending, err := svc.ListPending(ctx, admin, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	url, err := svc.DocumentURL(ctx, admin, v.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	expires := time.Now().UTC().AddDate(1, 0, 0)
	got, err := svc.Moderate(ctx, admin, v.ID, domain.ModerateVerificationParams{
		Action:    domain.VerificationActionApprove,
		ExpiresAt: &expires,
		Notes:     "Policy checked with insurer",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, got.Status)

	p, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, p.IsVerified)

	_, err = svc.Moderate(ctx, admin, v.ID, domain.ModerateVerificationParams{Action: domain.VerificationActionReject, Reason: "late"})
	requireCode(t, err, domain.ETRANSITION)
}

func TestVerification_RejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewVerificationService(store, newTestStorage(t), testLogger())

	tp, profile := seedTradesperson(t, store, domain.TierPro)
	admin := seedUser(t, store, domain.RoleAdmin)

	v, err := svc.Submit(ctx, tp, insuranceDoc())
	require.NoError(t, err)

	_, err = svc.Moderate(ctx, admin, v.ID, domain.ModerateVerificationParams{Action: domain.VerificationActionReject})
	require.True(t, domain.IsValidation(err))

	got, err := svc.Moderate(ctx, admin, v.ID, domain.ModerateVerificationParams{
		Action: domain.VerificationActionReject,
		Reason: "Document is illegible",
	})
	require.NoError(t, err)
	assert.Equal(t, "Document is illegible", got.RejectionReason)

	p, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.False(t, p.IsVerified)
}

func TestVerification_BadgeCap(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewVerificationService(store, newTestStorage(t), testLogger())

	tp, _ := seedTradesperson(t, store, domain.TierFree)

	_, err := svc.Submit(ctx, tp, insuranceDoc())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, tp, insuranceDoc())
	requireCode(t, err, domain.EQUOTA)

	mine, err := svc.ListMine(ctx, tp)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestVerification_SubmitRules(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewVerificationService(store, newTestStorage(t), testLogger())

	tp, _ := seedTradesperson(t, store, domain.TierPro)
	customer := seedUser(t, store, domain.RoleCustomer)

	_, err := svc.Submit(ctx, customer, insuranceDoc())
	requireCode(t, err, domain.EFORBIDDEN)

	bad := insuranceDoc()
	bad.Type = "PASSPORT"
	_, err = svc.Submit(ctx, tp, bad)
	require.True(t, domain.IsValidation(err))

	huge := insuranceDoc()
	huge.Data = make([]byte, MaxVerificationDocumentBytes+1)
	_, err = svc.Submit(ctx, tp, huge)
	requireCode(t, err, domain.ETOOLARGE)

	exe := insuranceDoc()
	exe.Filename = "setup.exe"
	exe.ContentType = "application/x-msdownload"
	exe.Data = []byte("MZ\x90\x00")
	_, err = svc.Submit(ctx, tp, exe)
	require.True(t, domain.IsValidation(err))

	other := seedUser(t, store, domain.RoleTradesperson)
	v, err := svc.Submit(ctx, tp, insuranceDoc())
	require.NoError(t, err)
	_, err = svc.DocumentURL(ctx, other, v.ID)
	requireCode(t, err, domain.ENOTFOUND)
}
