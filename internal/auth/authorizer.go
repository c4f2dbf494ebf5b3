// Package auth provides the Authorizer implementations the ledger
// consumes. The ledger itself only ever asks "may this session act on
// this account" and trusts the answer.
package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ray-cod/pocket-bank/internal/domain"
)

// AllowAll authorizes every caller. Default for single-tenant deployments
// where the front end has already authenticated the user.
type AllowAll struct{}

func (AllowAll) IsAuthorized(context.Context, string, string) (bool, error) {
	return true, nil
}

var _ domain.Authorizer = AllowAll{}

// SessionAuthorizer maps session tokens to user ids and authorizes a
// session for exactly the accounts that user owns. Sessions are explicit
// objects granted by the login flow, not ambient globals.
type SessionAuthorizer struct {
	store domain.Store

	mu       sync.RWMutex
	sessions map[string]uuid.UUID
}

func NewSessionAuthorizer(store domain.Store) *SessionAuthorizer {
	return &SessionAuthorizer{
		store:    store,
		sessions: make(map[string]uuid.UUID),
	}
}

// Grant binds a session token to a user. Returns the token for chaining.
func (a *SessionAuthorizer) Grant(token string, userID uuid.UUID) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[token] = userID
	return token
}

func (a *SessionAuthorizer) Revoke(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, token)
}

func (a *SessionAuthorizer) IsAuthorized(ctx context.Context, callerSession string, accountRef string) (bool, error) {
	a.mu.RLock()
	userID, ok := a.sessions[callerSession]
	a.mu.RUnlock()
	if !ok {
		return false, nil
	}

	account, err := resolve(ctx, a.store, accountRef)
	if err != nil {
		return false, err
	}
	return account.UserID == userID, nil
}

func resolve(ctx context.Context, store domain.Store, ref string) (*domain.Account, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return store.Accounts().GetAccount(ctx, id)
	}
	return store.Accounts().GetAccountByNumber(ctx, ref)
}

var _ domain.Authorizer = (*SessionAuthorizer)(nil)
