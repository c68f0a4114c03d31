package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// freezeTime pins the service clock for the duration of the test.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at.UTC() }
	t.Cleanup(func() { timeNow = prev })
}

var plumbing = domain.Trade{ID: uuid.MustParse("0b7e2a3c-4d5f-4a6b-9c8d-2d5f8e0a1b01"), Name: "Plumbing", Slug: "plumbing"}

func seedUser(t *testing.T, s *memstore.Store, role domain.Role) domain.AuthContext {
	t.Helper()
	u := &domain.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Name:      string(role),
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u.AuthContext()
}

func seedTrade(t *testing.T, s *memstore.Store) domain.Trade {
	t.Helper()
	if _, err := s.GetTradeByID(context.Background(), plumbing.ID); err != nil {
		require.NoError(t, s.CreateTrade(context.Background(), &plumbing))
	}
	return plumbing
}

// seedTradesperson creates a tradesperson account with an active profile
// listing the plumbing trade.
func seedTradesperson(t *testing.T, s *memstore.Store, tier domain.SubscriptionTier) (domain.AuthContext, *domain.TradesProfile) {
	t.Helper()
	ctx := context.Background()
	ac := seedUser(t, s, domain.RoleTradesperson)
	trade := seedTrade(t, s)

	now := time.Now().UTC()
	p := &domain.TradesProfile{
		ID:               uuid.New(),
		UserID:           ac.UserID,
		BusinessName:     "Ace Plumbing",
		Location:         "Leeds",
		SubscriptionTier: tier,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, s.CreateProfile(ctx, p))
	require.NoError(t, s.SetProfileTrades(ctx, p.ID, []uuid.UUID{trade.ID}))
	p.Trades = []domain.Trade{trade}
	return ac, p
}

func seedJob(t *testing.T, s *memstore.Store, customer domain.AuthContext, status domain.JobStatus) *domain.Job {
	t.Helper()
	trade := seedTrade(t, s)
	now := time.Now().UTC()
	j := &domain.Job{
		ID:          uuid.New(),
		CustomerID:  customer.UserID,
		TradeID:     trade.ID,
		Title:       "Replace boiler",
		Description: "Old combi boiler needs replacing before winter.",
		Location:    "Leeds",
		Timeframe:   "WITHIN_MONTH",
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateJob(context.Background(), j))
	return j
}

func seedApplication(t *testing.T, s *memstore.Store, jobID, profileID uuid.UUID, createdAt time.Time) *domain.JobApplication {
	t.Helper()
	a := &domain.JobApplication{
		ID:          uuid.New(),
		JobID:       jobID,
		ProfileID:   profileID,
		Status:      domain.ApplicationPending,
		CoverLetter: "I have fitted dozens of boilers like this one.",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, s.CreateApplication(context.Background(), a))
	return a
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.ErrorCode(err), "error: %v", err)
}
