package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/money"
)

// TransactionKind tags the direction of a ledger record. The amount is
// always the positive magnitude; the kind implies the sign.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "deposit"
	KindWithdraw    TransactionKind = "withdraw"
	KindTransferOut TransactionKind = "transfer_out"
	KindTransferIn  TransactionKind = "transfer_in"
)

// Signed returns the amount with the sign implied by the kind, so that
// summing an account's records in creation order reproduces its balance.
func (k TransactionKind) Signed(amount decimal.Decimal) decimal.Decimal {
	switch k {
	case KindWithdraw, KindTransferOut:
		return amount.Neg()
	default:
		return amount
	}
}

func ParseTransactionKind(s string) (TransactionKind, bool) {
	switch TransactionKind(s) {
	case KindDeposit, KindWithdraw, KindTransferOut, KindTransferIn:
		return TransactionKind(s), true
	}
	return "", false
}

// TransactionRecord is one entry of an account's append-only ledger.
// Records are never updated or deleted once created.
type TransactionRecord struct {
	ID             uuid.UUID       `json:"transaction_id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Kind           TransactionKind `json:"kind"`
	Amount         money.Amount    `json:"amount"`
	BalanceAfter   money.Amount    `json:"balance_after"`
	Description    string          `json:"description"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HistoryFilter narrows a most-recent-first listing of an account's records.
// Zero From/To mean an open bound. Page is zero-based; PageSize <= 0 means
// no pagination.
type HistoryFilter struct {
	Kind     TransactionKind
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, rec *TransactionRecord) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter HistoryFilter) ([]TransactionRecord, error)
}
