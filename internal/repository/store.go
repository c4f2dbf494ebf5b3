package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	goerrors "errors"
	"log/slog"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/ray-cod/pocket-bank/internal/domain"
	"github.com/ray-cod/pocket-bank/internal/errors"
)

// Store is the Postgres ledger store. It provides repository access plus
// the single atomic-unit primitive every engine operation composes with.
type Store struct {
	executor  SQLExecutor
	logger    *slog.Logger
	txTimeout time.Duration
}

// NewStore creates a new Store instance. txTimeout bounds each atomic
// unit; zero disables the bound.
func NewStore(db *sql.DB, logger *slog.Logger, txTimeout time.Duration) *Store {
	return &Store{
		executor:  db,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

// Accounts returns an AccountRepository using the current executor
func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Transactions returns a TransactionRepository using the current executor
func (s *Store) Transactions() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// WithTransaction executes fn within one database transaction. The whole
// unit commits on nil or rolls back on error, panic, or timeout; no
// partial write is ever observable.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	// Only the root store can begin transactions; nesting is a bug.
	db, ok := s.executor.(DB)
	if !ok {
		return errors.NewAppError(errors.InternalError, "atomic unit already in progress")
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classifyInfraError(err)
	}

	txStore := &Store{
		executor: &TxWrapper{Tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		if infra := classifyInfraError(err); infra != nil {
			return infra
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyInfraError(err)
	}
	return nil
}

var _ domain.Store = (*Store)(nil)

// connection exception, insufficient resources, operator intervention
var transientPqClasses = map[string]bool{"08": true, "53": true, "57": true}

// classifyInfraError maps driver-level failures onto the transient error
// kinds (timeout, storage_unavailable). Domain errors pass through as nil
// so callers can return them untouched.
func classifyInfraError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if goerrors.As(err, &appErr) {
		return nil
	}

	if goerrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrTimeout.WithDetails(err.Error())
	}
	if goerrors.Is(err, driver.ErrBadConn) || goerrors.Is(err, sql.ErrConnDone) {
		return errors.ErrStorageUnavailable.WithDetails(err.Error())
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		return errors.ErrStorageUnavailable.WithDetails(err.Error())
	}
	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) && transientPqClasses[string(pqErr.Code.Class())] {
		return errors.ErrStorageUnavailable.WithDetails(err.Error())
	}

	return errors.NewAppError(errors.InternalError, "storage operation failed").WithDetails(err.Error())
}
