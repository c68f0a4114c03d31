package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
)

func TestMessages(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewMessageService(store, testLogger())

	alice := seedUser(t, store, domain.RoleCustomer)
	bob := seedUser(t, store, domain.RoleTradesperson)
	eve := seedUser(t, store, domain.RoleCustomer)

	msg, err := svc.Send(ctx, alice, domain.SendMessageParams{RecipientID: bob.UserID, Body: "  Are you free on Friday?  "})
	require.NoError(t, err)
	assert.Equal(t, "Are you free on Friday?", msg.Body)

	_, err = svc.Send(ctx, alice, domain.SendMessageParams{RecipientID: alice.UserID, Body: "note to self"})
	requireCode(t, err, domain.EINVALID)

	_, err = svc.Send(ctx, alice, domain.SendMessageParams{RecipientID: uuid.New(), Body: "hello?"})
	requireCode(t, err, domain.ENOTFOUND)

	inbox, err := svc.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, inbox, 1)

	_, err = svc.Get(ctx, eve, msg.ID)
	requireCode(t, err, domain.ENOTFOUND)

	err = svc.Delete(ctx, bob, msg.ID)
	requireCode(t, err, domain.ENOTFOUND)

	require.NoError(t, svc.Delete(ctx, alice, msg.ID))
	inbox, err = svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}
