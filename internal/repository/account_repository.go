package repository

import (
	"context"
	"database/sql"
	goerrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/money"
)

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

// storageError maps infra failures onto transient error kinds and wraps
// everything else as internal_error.
func storageError(err error, msg string) error {
	if infra := classifyInfraError(err); infra != nil {
		return infra
	}
	return errors.NewAppError(errors.InternalError, msg).WithDetails(err.Error())
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, account_number, balance, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.UserID,
		account.AccountNumber,
		account.Balance.StringFixed(2),
		account.Active,
		now,
		now,
	)

	if err != nil {
		var pqErr *pq.Error
		if goerrors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate account creation attempt",
				"account_id", account.ID, "account_number", account.AccountNumber)
			return errors.ErrDuplicateAccount
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return storageError(err, "failed to create account")
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created", "account_id", account.ID, "account_number", account.AccountNumber)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, balance, active, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	return r.scanAccount(ctx, query, id)
}

func (r *accountRepository) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, balance, active, created_at, updated_at
		FROM accounts WHERE account_number = $1
	`

	return r.scanAccount(ctx, query, number)
}

// GetAccountForUpdate takes a row lock that lasts until the enclosing
// transaction ends. Callers locking two accounts must do so in ascending
// id order.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, balance, active, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`

	return r.scanAccount(ctx, query, id)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.UserID,
		&account.AccountNumber,
		&balanceStr,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Account not found", "account_ref", arg)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_ref", arg, "error", err)
		return nil, storageError(err, "failed to get account")
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_id", account.ID, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	account.Balance = money.NewAmount(balance)
	return &account, nil
}

func (r *accountRepository) UpdateAccountBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, newBalance.StringFixed(2), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return storageError(err, "failed to update account balance")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageError(err, "failed to get rows affected")
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account balance updated", "account_id", id, "new_balance", newBalance)
	return nil
}

func (r *accountRepository) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE accounts
		SET active = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account status", "account_id", id, "error", err)
		return storageError(err, "failed to update account status")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageError(err, "failed to get rows affected")
	}

	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account status updated", "account_id", id, "active", active)
	return nil
}
