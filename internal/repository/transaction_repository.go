package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
	"github.com/ray-cod/pocket-bank/internal/money"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTransaction appends one record to the ledger. There is
// intentionally no update or delete statement in this repository.
func (r *transactionRepository) CreateTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	query := `
		INSERT INTO transactions
		(id, account_id, kind, amount, balance_after, description, counterparty_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var counterparty interface{}
	if rec.CounterpartyID != nil {
		counterparty = *rec.CounterpartyID
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.AccountID,
		string(rec.Kind),
		rec.Amount.StringFixed(2),
		rec.BalanceAfter.StringFixed(2),
		rec.Description,
		counterparty,
		rec.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to append transaction record",
			"transaction_id", rec.ID,
			"account_id", rec.AccountID,
			"kind", rec.Kind,
			"error", err)
		return storageError(err, "failed to append transaction record")
	}

	r.logger.Info("Transaction record appended",
		"transaction_id", rec.ID, "account_id", rec.AccountID, "kind", rec.Kind)
	return nil
}

// ListByAccount returns an account's records most-recent-first. Filters
// are pushed into SQL; an out-of-range page yields an empty slice.
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter domain.HistoryFilter) ([]domain.TransactionRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, account_id, kind, amount, balance_after, description, counterparty_id, created_at
		FROM transactions WHERE account_id = $1
	`)

	args := []interface{}{accountID}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		fmt.Fprintf(&sb, " AND kind = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC")

	if filter.PageSize > 0 {
		args = append(args, filter.PageSize)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, filter.Page*filter.PageSize)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error("Failed to list transaction records", "account_id", accountID, "error", err)
		return nil, storageError(err, "failed to list transaction records")
	}
	defer rows.Close()

	records := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction record", "account_id", accountID, "error", err)
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate transaction records")
	}

	return records, nil
}

func scanTransaction(rows *sql.Rows) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var kind string
	var amountStr, balanceStr string
	var counterparty sql.NullString

	err := rows.Scan(
		&rec.ID,
		&rec.AccountID,
		&kind,
		&amountStr,
		&balanceStr,
		&rec.Description,
		&counterparty,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, storageError(err, "failed to scan transaction record")
	}

	parsedKind, ok := domain.ParseTransactionKind(kind)
	if !ok {
		return nil, errors.NewAppErrorf(errors.InternalError, "unknown transaction kind %q", kind)
	}
	rec.Kind = parsedKind

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
	}
	balanceAfter, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance_after").WithDetails(err.Error())
	}
	rec.Amount = money.NewAmount(amount)
	rec.BalanceAfter = money.NewAmount(balanceAfter)

	if counterparty.Valid {
		id, err := uuid.Parse(counterparty.String)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse counterparty id").WithDetails(err.Error())
		}
		rec.CounterpartyID = &id
	}

	return &rec, nil
}
