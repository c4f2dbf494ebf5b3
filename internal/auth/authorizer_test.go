package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/memstore"
	"github.com/ray-cod/pocket-bank/internal/money"
)

func TestAllowAll(t *testing.T) {
	ok, err := AllowAll{}.IsAuthorized(context.Background(), "", "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionAuthorizer(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	owner := uuid.New()
	account := &domain.Account{
		ID:            uuid.New(),
		UserID:        owner,
		AccountNumber: "1234567890",
		Balance:       money.NewAmount(decimal.Zero),
		Active:        true,
	}
	require.NoError(t, store.Accounts().CreateAccount(ctx, account))

	authz := NewSessionAuthorizer(store)
	token := authz.Grant("session-token", owner)

	ok, err := authz.IsAuthorized(ctx, token, account.ID.String())
	require.NoError(t, err)
	assert.True(t, ok, "owner session may act on the account")

	ok, err = authz.IsAuthorized(ctx, token, account.AccountNumber)
	require.NoError(t, err)
	assert.True(t, ok, "account number resolves to the same account")

	stranger := authz.Grant("other-token", uuid.New())
	ok, err = authz.IsAuthorized(ctx, stranger, account.ID.String())
	require.NoError(t, err)
	assert.False(t, ok, "a different user is not authorized")

	ok, err = authz.IsAuthorized(ctx, "unknown-token", account.ID.String())
	require.NoError(t, err)
	assert.False(t, ok, "unknown sessions are rejected")

	authz.Revoke(token)
	ok, err = authz.IsAuthorized(ctx, token, account.ID.String())
	require.NoError(t, err)
	assert.False(t, ok, "revoked sessions are rejected")
}
