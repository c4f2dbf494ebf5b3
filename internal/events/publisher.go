// Package events publishes committed transaction records to interested
// consumers. Publishing is best-effort and happens after commit; it never
// affects the outcome of a ledger operation.
package events

import (
	"context"

	"github.com/ray-cod/pocket-bank/internal/domain"
)

type Publisher interface {
	PublishRecord(ctx context.Context, rec domain.TransactionRecord) error
	Close() error
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishRecord(context.Context, domain.TransactionRecord) error { return nil }
func (Noop) Close() error                                                  { return nil }
