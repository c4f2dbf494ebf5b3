package service

import (
	"context"
	goerrors "errors"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/money"
)

const (
	accountNumberLength = 10

	// retries on an account-number collision before giving up
	accountNumberAttempts = 3
)

// AccountService provisions accounts. Balances are only ever mutated by
// the ledger engine afterwards; accounts are deactivated, never deleted.
type AccountService struct {
	store      domain.Store
	logger     *slog.Logger
	numberFunc func() string
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:      store,
		logger:     logger,
		numberFunc: generateAccountNumber,
	}
}

// CreateAccount opens an active account for userID with a generated
// account number. A positive initialBalance is seeded together with an
// "Initial deposit" record in the same atomic unit, so the ledger
// reconciles from the very first record.
func (s *AccountService) CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance string) (*domain.Account, error) {
	if userID == uuid.Nil {
		return nil, errors.NewAppError(errors.InvalidInput, "user id must be provided")
	}

	seed := decimal.Zero
	if strings.TrimSpace(initialBalance) != "" {
		var err error
		if seed, err = money.Parse(initialBalance); err != nil {
			return nil, err
		}
	}

	account := &domain.Account{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: money.NewAmount(seed),
		Active:  true,
	}

	// a generated number can collide with an existing account; regenerate
	// and retry instead of surfacing the collision to the caller
	var err error
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		account.AccountNumber = s.numberFunc()

		err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
			if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
				return err
			}
			if seed.IsPositive() {
				rec := newRecord(account.ID, domain.KindDeposit, seed, seed, "Initial deposit", nil)
				return tx.Transactions().CreateTransaction(ctx, rec)
			}
			return nil
		})
		if !goerrors.Is(err, errors.ErrDuplicateAccount) {
			break
		}
		s.logger.Warn("Account number collision, retrying",
			"account_number", account.AccountNumber, "attempt", attempt+1)
	}
	if err != nil {
		s.logger.Warn("Account creation failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("Account opened",
		"account_id", account.ID,
		"account_number", account.AccountNumber,
		"user_id", userID,
		"initial_balance", seed)
	return account, nil
}

// Deactivate flips the account inactive. It stays readable and keeps its
// history; mutating operations reject it from now on.
func (s *AccountService) Deactivate(ctx context.Context, accountRef string) (*domain.Account, error) {
	account, err := resolveRef(ctx, s.store, accountRef)
	if err != nil {
		return nil, err
	}

	if err := s.store.Accounts().SetAccountActive(ctx, account.ID, false); err != nil {
		return nil, err
	}

	account.Active = false
	s.logger.Info("Account deactivated", "account_id", account.ID)
	return account, nil
}

func generateAccountNumber() string {
	var sb strings.Builder
	for i := 0; i < accountNumberLength; i++ {
		sb.WriteByte(byte('0' + rand.Intn(10)))
	}
	return sb.String()
}
