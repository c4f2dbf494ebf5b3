// Package memstore is an in-memory ledger store. It backs unit tests and
// DB-less runs with the same contract as the Postgres store: one mutex is
// the sole serialization point, and WithTransaction snapshots state so a
// failed unit rolls back completely.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/money"
)

type Store struct {
	mu       *sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	byNumber map[string]uuid.UUID
	records  []domain.TransactionRecord

	// txTimeout bounds each atomic unit, like the Postgres store's;
	// zero disables the bound.
	txTimeout time.Duration

	// inTx marks a transaction-scoped view; its methods run under the
	// already-held mutex and must not lock again.
	inTx bool
}

func New() *Store {
	return NewWithTimeout(0)
}

func NewWithTimeout(txTimeout time.Duration) *Store {
	return &Store{
		mu:        &sync.Mutex{},
		accounts:  make(map[uuid.UUID]*domain.Account),
		byNumber:  make(map[string]uuid.UUID),
		records:   make([]domain.TransactionRecord, 0),
		txTimeout: txTimeout,
	}
}

func (s *Store) Accounts() domain.AccountRepository      { return (*accountRepo)(s) }
func (s *Store) Transactions() domain.TransactionRepository { return (*transactionRepo)(s) }

// WithTransaction serializes the unit on the store mutex, snapshots the
// mutable state, and restores it if fn fails or panics.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.inTx {
		return errors.NewAppError(errors.InternalError, "atomic unit already in progress")
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.ErrTimeout.WithDetails(err.Error())
	}

	snapAccounts, snapByNumber, snapLen := s.snapshot()
	restore := func() {
		s.accounts = snapAccounts
		s.byNumber = snapByNumber
		s.records = s.records[:snapLen]
	}

	txStore := &Store{
		mu:       s.mu,
		accounts: s.accounts,
		byNumber: s.byNumber,
		records:  s.records,
		inTx:     true,
	}

	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		restore()
		return err
	}
	// fn may have appended records through the tx view
	s.records = txStore.records

	if err := ctx.Err(); err != nil {
		restore()
		return errors.ErrTimeout.WithDetails(err.Error())
	}
	return nil
}

var _ domain.Store = (*Store)(nil)

func (s *Store) snapshot() (map[uuid.UUID]*domain.Account, map[string]uuid.UUID, int) {
	accounts := make(map[uuid.UUID]*domain.Account, len(s.accounts))
	for id, a := range s.accounts {
		cp := *a
		accounts[id] = &cp
	}
	byNumber := make(map[string]uuid.UUID, len(s.byNumber))
	for n, id := range s.byNumber {
		byNumber[n] = id
	}
	return accounts, byNumber, len(s.records)
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type accountRepo Store

func (r *accountRepo) CreateAccount(_ context.Context, account *domain.Account) error {
	defer (*Store)(r).lock()()

	if _, exists := r.accounts[account.ID]; exists {
		return errors.ErrDuplicateAccount
	}
	if _, exists := r.byNumber[account.AccountNumber]; exists {
		return errors.ErrDuplicateAccount
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	cp := *account
	r.accounts[cp.ID] = &cp
	r.byNumber[cp.AccountNumber] = cp.ID
	return nil
}

func (r *accountRepo) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	defer (*Store)(r).lock()()
	return r.get(id)
}

func (r *accountRepo) GetAccountByNumber(_ context.Context, number string) (*domain.Account, error) {
	defer (*Store)(r).lock()()

	id, ok := r.byNumber[number]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return r.get(id)
}

// GetAccountForUpdate is the same as GetAccount here: the store mutex
// already serializes the whole atomic unit.
func (r *accountRepo) GetAccountForUpdate(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	defer (*Store)(r).lock()()
	return r.get(id)
}

func (r *accountRepo) get(id uuid.UUID) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *accountRepo) UpdateAccountBalance(_ context.Context, id uuid.UUID, newBalance decimal.Decimal) error {
	defer (*Store)(r).lock()()

	a, ok := r.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	a.Balance = money.NewAmount(newBalance)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *accountRepo) SetAccountActive(_ context.Context, id uuid.UUID, active bool) error {
	defer (*Store)(r).lock()()

	a, ok := r.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	a.Active = active
	a.UpdatedAt = time.Now().UTC()
	return nil
}

type transactionRepo Store

func (r *transactionRepo) CreateTransaction(_ context.Context, rec *domain.TransactionRecord) error {
	defer (*Store)(r).lock()()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *transactionRepo) ListByAccount(_ context.Context, accountID uuid.UUID, filter domain.HistoryFilter) ([]domain.TransactionRecord, error) {
	defer (*Store)(r).lock()()

	// newest first: walk the append-only sequence in reverse
	matched := make([]domain.TransactionRecord, 0)
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.AccountID != accountID {
			continue
		}
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if !filter.From.IsZero() && rec.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, rec)
	}

	if filter.PageSize <= 0 {
		return matched, nil
	}
	from := filter.Page * filter.PageSize
	if from >= len(matched) {
		return []domain.TransactionRecord{}, nil
	}
	to := from + filter.PageSize
	if to > len(matched) {
		to = len(matched)
	}
	return matched[from:to], nil
}
