package service

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/events"
	"github.com/ray-cod/pocket-bank/internal/money"
)

// LedgerService is the ledger engine: deposit, withdraw, and transfer as
// atomic units against the store. It holds no state of its own — every
// call reads current state, computes the mutation, and commits it through
// one WithTransaction.
type LedgerService struct {
	store     domain.Store
	publisher events.Publisher
	logger    *slog.Logger
}

func NewLedgerService(store domain.Store, publisher events.Publisher, logger *slog.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Deposit credits the account and appends one deposit record.
func (s *LedgerService) Deposit(ctx context.Context, accountRef, amount, description string) (*domain.TransactionRecord, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return nil, err
	}

	var rec *domain.TransactionRecord
	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := lockAccount(ctx, tx, accountRef)
		if err != nil {
			return err
		}
		if !account.Active {
			return errors.ErrAccountInactive
		}

		newBalance := account.Balance.Add(amt)
		if err := tx.Accounts().UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}

		rec = newRecord(account.ID, domain.KindDeposit, amt, newBalance, description, nil)
		return tx.Transactions().CreateTransaction(ctx, rec)
	})
	if err != nil {
		s.logger.Warn("Deposit failed", "account_ref", accountRef, "error", err)
		return nil, err
	}

	s.logger.Info("Deposit committed",
		"transaction_id", rec.ID, "account_id", rec.AccountID, "amount", amt)
	s.publish(ctx, *rec)
	return rec, nil
}

// Withdraw debits the account and appends one withdraw record. The
// balance check and the debit are one atomic step: concurrent withdrawals
// cannot drive the balance negative.
func (s *LedgerService) Withdraw(ctx context.Context, accountRef, amount, description string) (*domain.TransactionRecord, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return nil, err
	}

	var rec *domain.TransactionRecord
	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := lockAccount(ctx, tx, accountRef)
		if err != nil {
			return err
		}
		if !account.Active {
			return errors.ErrAccountInactive
		}
		if account.Balance.LessThan(amt) {
			return errors.ErrInsufficientFunds
		}

		newBalance := account.Balance.Sub(amt)
		if err := tx.Accounts().UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}

		rec = newRecord(account.ID, domain.KindWithdraw, amt, newBalance, description, nil)
		return tx.Transactions().CreateTransaction(ctx, rec)
	})
	if err != nil {
		s.logger.Warn("Withdrawal failed", "account_ref", accountRef, "error", err)
		return nil, err
	}

	s.logger.Info("Withdrawal committed",
		"transaction_id", rec.ID, "account_id", rec.AccountID, "amount", amt)
	s.publish(ctx, *rec)
	return rec, nil
}

// Transfer moves amount between two accounts as one atomic unit and
// appends a transfer_out / transfer_in record pair, each naming the other
// account as counterparty.
func (s *LedgerService) Transfer(ctx context.Context, fromRef, toRef, amount, description string) (*domain.TransactionRecord, *domain.TransactionRecord, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return nil, nil, err
	}
	if fromRef == toRef {
		return nil, nil, errors.ErrSameAccount
	}

	var outRec, inRec *domain.TransactionRecord
	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		// Resolve both refs before locking so the rows can be locked
		// in ascending id order regardless of transfer direction.
		from, err := resolveRef(ctx, tx, fromRef)
		if err != nil {
			return err
		}
		to, err := resolveRef(ctx, tx, toRef)
		if err != nil {
			return err
		}
		if from.ID == to.ID {
			return errors.ErrSameAccount
		}

		first, second := from.ID, to.ID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		lockedFirst, err := tx.Accounts().GetAccountForUpdate(ctx, first)
		if err != nil {
			return err
		}
		lockedSecond, err := tx.Accounts().GetAccountForUpdate(ctx, second)
		if err != nil {
			return err
		}

		// The pre-lock snapshots may be stale; use the locked rows.
		if lockedFirst.ID == from.ID {
			from, to = lockedFirst, lockedSecond
		} else {
			from, to = lockedSecond, lockedFirst
		}

		if !from.Active || !to.Active {
			return errors.ErrAccountInactive
		}
		if from.Balance.LessThan(amt) {
			return errors.ErrInsufficientFunds
		}

		newFromBalance := from.Balance.Sub(amt)
		newToBalance := to.Balance.Add(amt)

		if err := tx.Accounts().UpdateAccountBalance(ctx, from.ID, newFromBalance); err != nil {
			return err
		}
		if err := tx.Accounts().UpdateAccountBalance(ctx, to.ID, newToBalance); err != nil {
			return err
		}

		outRec = newRecord(from.ID, domain.KindTransferOut, amt, newFromBalance, description, &to.ID)
		inRec = newRecord(to.ID, domain.KindTransferIn, amt, newToBalance, description, &from.ID)
		inRec.CreatedAt = outRec.CreatedAt

		if err := tx.Transactions().CreateTransaction(ctx, outRec); err != nil {
			return err
		}
		return tx.Transactions().CreateTransaction(ctx, inRec)
	})
	if err != nil {
		s.logger.Warn("Transfer failed", "from_ref", fromRef, "to_ref", toRef, "error", err)
		return nil, nil, err
	}

	s.logger.Info("Transfer committed",
		"out_transaction_id", outRec.ID,
		"in_transaction_id", inRec.ID,
		"from_account_id", outRec.AccountID,
		"to_account_id", inRec.AccountID,
		"amount", amt)
	s.publish(ctx, *outRec)
	s.publish(ctx, *inRec)
	return outRec, inRec, nil
}

// GetAccount resolves an account by id or account number. Inactive
// accounts remain readable.
func (s *LedgerService) GetAccount(ctx context.Context, accountRef string) (*domain.Account, error) {
	return resolveRef(ctx, s.store, accountRef)
}

func newRecord(accountID uuid.UUID, kind domain.TransactionKind, amount, balanceAfter decimal.Decimal, description string, counterparty *uuid.UUID) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:             uuid.New(),
		AccountID:      accountID,
		Kind:           kind,
		Amount:         money.NewAmount(amount),
		BalanceAfter:   money.NewAmount(balanceAfter),
		Description:    description,
		CounterpartyID: counterparty,
		CreatedAt:      time.Now().UTC(),
	}
}

// publish is best-effort: a committed mutation is never un-done because
// downstream consumers are unreachable.
func (s *LedgerService) publish(ctx context.Context, rec domain.TransactionRecord) {
	if err := s.publisher.PublishRecord(ctx, rec); err != nil {
		s.logger.Error("Failed to publish transaction record",
			"transaction_id", rec.ID, "error", err)
	}
}

// resolveRef resolves an account reference: a UUID is the opaque account
// id, anything else is treated as the human-facing account number.
func resolveRef(ctx context.Context, store domain.Store, ref string) (*domain.Account, error) {
	if ref == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "account reference must be provided")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return store.Accounts().GetAccount(ctx, id)
	}
	return store.Accounts().GetAccountByNumber(ctx, ref)
}

// lockAccount resolves a ref and locks the row for the rest of the unit.
func lockAccount(ctx context.Context, tx domain.Store, ref string) (*domain.Account, error) {
	account, err := resolveRef(ctx, tx, ref)
	if err != nil {
		return nil, err
	}
	return tx.Accounts().GetAccountForUpdate(ctx, account.ID)
}
