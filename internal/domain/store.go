package domain

import "context"

// Store is the ledger store: one balance row per account plus the
// append-only transaction sequence. WithTransaction is the single atomic
// unit: the callback's reads and writes commit entirely or roll back
// entirely. Engine operations do all read-modify-write inside it; nothing
// reads a balance outside an atomic unit and writes it back later.
type Store interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
