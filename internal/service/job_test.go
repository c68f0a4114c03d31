package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

func TestJobCreate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewJobService(store, testLogger())
	now := time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	customer := seedUser(t, store, domain.RoleCustomer)
	tp, _ := seedTradesperson(t, store, domain.TierFree)

	params := domain.CreateJobParams{
		TradeID:     plumbing.ID,
		Title:       "Fix leaking tap",
		Description: "Kitchen mixer tap drips constantly.",
		Location:    "Leeds",
		Timeframe:   "ASAP",
	}

	job, err := svc.Create(ctx, customer, params)
	require.NoError(t, err)
	assert.Equal(t, domain.JobOpen, job.Status)
	require.NotNil(t, job.ExpiresAt)
	assert.Equal(t, now.Add(domain.DefaultJobLifetime), *job.ExpiresAt)

	_, err = svc.Create(ctx, tp, params)
	requireCode(t, err, domain.EFORBIDDEN)

	lo, hi := int64(500), int64(100)
	bad := params
	bad.BudgetMin, bad.BudgetMax = &lo, &hi
	_, err = svc.Create(ctx, customer, bad)
	assert.True(t, domain.IsValidation(err) || domain.ErrorCode(err) == domain.EINVALID)

	unknown := params
	unknown.TradeID = uuid.New()
	_, err = svc.Create(ctx, customer, unknown)
	require.Error(t, err)
}

func TestGetOwned_HidesJobFromOtherUsers(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewJobService(store, testLogger())

	owner := seedUser(t, store, domain.RoleCustomer)
	other := seedUser(t, store, domain.RoleCustomer)
	job := seedJob(t, store, owner, domain.JobOpen)

	got, err := svc.GetOwned(ctx, owner, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.GetOwned(ctx, domain.AuthContext{}, job.ID)
	requireCode(t, err, domain.EUNAUTHORIZED)

	_, err = svc.GetOwned(ctx, other, job.ID)
	requireCode(t, err, domain.ENOTFOUND)
}

func TestGet_OpenJobReadableByTradespeople(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewJobService(store, testLogger())

	owner := seedUser(t, store, domain.RoleCustomer)
	tp, _ := seedTradesperson(t, store, domain.TierFree)
	open := seedJob(t, store, owner, domain.JobOpen)
	closed := seedJob(t, store, owner, domain.JobClosed)

	_, err := svc.Get(ctx, tp, open.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, tp, closed.ID)
	requireCode(t, err, domain.ENOTFOUND)

	_, err = svc.Get(ctx, domain.AuthContext{}, open.ID)
	requireCode(t, err, domain.EUNAUTHORIZED)
}

func TestGet_ExpiresLapsedJob(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewJobService(store, testLogger())

	owner := seedUser(t, store, domain.RoleCustomer)
	past := time.Now().UTC().Add(-time.Hour)
	lapsed := &domain.Job{
		ID:         uuid.New(),
		CustomerID: owner.UserID,
		TradeID:    seedTrade(t, store).ID,
		Title:      "Bleed radiators",
		Status:     domain.JobOpen,
		ExpiresAt:  &past,
		CreatedAt:  past.Add(-domain.DefaultJobLifetime),
		UpdatedAt:  past.Add(-domain.DefaultJobLifetime),
	}
	require.NoError(t, store.CreateJob(ctx, lapsed))

	got, err := svc.Get(ctx, owner, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobExpired, got.Status)

	stored, err := store.GetJobByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobExpired, stored.Status)
}

func TestListOpenForProfile_MatchesTrades(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewJobService(store, testLogger())

	owner := seedUser(t, store, domain.RoleCustomer)
	tp, _ := seedTradesperson(t, store, domain.TierFree)

	match := seedJob(t, store, owner, domain.JobOpen)
	seedJob(t, store, owner, domain.JobClosed)

	electrical := domain.Trade{ID: uuid.New(), Name: "Electrical", Slug: "electrical"}
	require.NoError(t, store.CreateTrade(ctx, &electrical))
	now := time.Now().UTC()
	other := &domain.Job{
		ID:         uuid.New(),
		CustomerID: owner.UserID,
		TradeID:    electrical.ID,
		Title:      "Rewire kitchen",
		Status:     domain.JobOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.CreateJob(ctx, other))

	jobs, err := svc.ListOpenForProfile(ctx, tp, domain.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, match.ID, jobs[0].ID)

	jobs, err = svc.ListOpenForProfile(ctx, tp, domain.JobFilter{TradeID: &electrical.ID})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJobTransition(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewJobService(store, testLogger())

	owner := seedUser(t, store, domain.RoleCustomer)
	job := seedJob(t, store, owner, domain.JobOpen)

	got, err := svc.Transition(ctx, owner, job.ID, domain.JobActionClose)
	require.NoError(t, err)
	assert.Equal(t, domain.JobClosed, got.Status)

	_, err = svc.Transition(ctx, owner, job.ID, domain.JobActionComplete)
	requireCode(t, err, domain.ETRANSITION)
}
