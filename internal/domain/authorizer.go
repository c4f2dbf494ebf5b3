package domain

import "context"

// Authorizer is the capability check consumed from the auth collaborator.
// The ledger trusts the answer and performs no identity logic itself.
type Authorizer interface {
	IsAuthorized(ctx context.Context, callerSession string, accountRef string) (bool, error)
}
