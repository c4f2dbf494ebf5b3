package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ray-cod/pocket-bank/internal/money"
)

type Account struct {
	ID            uuid.UUID    `json:"account_id"`
	UserID        uuid.UUID    `json:"user_id"`
	AccountNumber string       `json:"account_number"`
	Balance       money.Amount `json:"balance"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*Account, error)
	// GetAccountForUpdate locks the account row for the remainder of the
	// enclosing atomic unit. Only meaningful inside Store.WithTransaction.
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error
	SetAccountActive(ctx context.Context, id uuid.UUID, active bool) error
}
