package service

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"time"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
)

// HistoryService serves read-only projections over the transaction
// sequence. It never mutates store state.
type HistoryService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewHistoryService(store domain.Store, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		store:  store,
		logger: logger,
	}
}

// History lists an account's records most-recent-first, narrowed by the
// filter. Pages are zero-based; a page past the end is an empty slice,
// not an error. Inactive accounts remain queryable.
func (s *HistoryService) History(ctx context.Context, accountRef string, filter domain.HistoryFilter) ([]domain.TransactionRecord, error) {
	if filter.Page < 0 || filter.PageSize < 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "page and page_size must not be negative")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, errors.NewAppError(errors.InvalidInput, "time range is inverted")
	}

	account, err := resolveRef(ctx, s.store, accountRef)
	if err != nil {
		return nil, err
	}

	return s.store.Transactions().ListByAccount(ctx, account.ID, filter)
}

var csvHeader = []string{
	"transaction_id", "account_id", "type", "amount",
	"balance_after", "description", "counterparty_id", "timestamp",
}

// ExportCSV streams the account's full history as CSV, newest first.
func (s *HistoryService) ExportCSV(ctx context.Context, accountRef string, w io.Writer) error {
	records, err := s.History(ctx, accountRef, domain.HistoryFilter{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.NewAppError(errors.InternalError, "failed to write csv").WithDetails(err.Error())
	}

	for _, rec := range records {
		counterparty := ""
		if rec.CounterpartyID != nil {
			counterparty = rec.CounterpartyID.String()
		}
		row := []string{
			rec.ID.String(),
			rec.AccountID.String(),
			string(rec.Kind),
			rec.Amount.StringFixed(2),
			rec.BalanceAfter.StringFixed(2),
			rec.Description,
			counterparty,
			rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return errors.NewAppError(errors.InternalError, "failed to write csv").WithDetails(err.Error())
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewAppError(errors.InternalError, "failed to write csv").WithDetails(err.Error())
	}

	s.logger.Info("History exported", "account_ref", accountRef, "records", len(records))
	return nil
}
