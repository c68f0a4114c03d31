package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

func TestNormalizeSessionDuration(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultSessionDuration},
		{5 * time.Minute, MinSessionDuration},
		{MinSessionDuration, MinSessionDuration},
		{12 * time.Hour, 12 * time.Hour},
		{MaxSessionDuration, MaxSessionDuration},
		{60 * 24 * time.Hour, MaxSessionDuration},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeSessionDuration(tt.in), "input %v", tt.in)
	}
}

func TestSession_ConfiguredLifetime(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	freezeTime(t, start)

	svc := NewUserService(memstore.New(), UserServiceConfig{SessionDuration: 2 * time.Hour}, testLogger())
	register(t, svc, "sam@example.com", domain.RoleCustomer)

	early, err := svc.Login(ctx, "sam@example.com", "MyS3cur3Pass")
	require.NoError(t, err)

	freezeTime(t, start.Add(90*time.Minute))
	late, err := svc.Login(ctx, "sam@example.com", "MyS3cur3Pass")
	require.NoError(t, err)

	freezeTime(t, start.Add(2*time.Hour-time.Second))
	_, err = svc.GetBySessionToken(ctx, early.Token)
	require.NoError(t, err, "still inside the lifetime")

	freezeTime(t, start.Add(2*time.Hour))
	_, err = svc.GetBySessionToken(ctx, early.Token)
	requireCode(t, err, domain.EUNAUTHORIZED)
	_, err = svc.GetBySessionToken(ctx, late.Token)
	require.NoError(t, err)

	n, err := svc.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the first session has lapsed")

	_, err = svc.GetBySessionToken(ctx, late.Token)
	assert.NoError(t, err)
}
