package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidAmount      ErrorCode = "invalid_amount"
	InvalidInput       ErrorCode = "invalid_input"
	AccountNotFound    ErrorCode = "account_not_found"
	AccountInactive    ErrorCode = "account_inactive"
	InsufficientFunds  ErrorCode = "insufficient_funds"
	SameAccount        ErrorCode = "same_account"
	DuplicateAccount   ErrorCode = "duplicate_account"
	Unauthorized       ErrorCode = "unauthorized"
	StorageUnavailable ErrorCode = "storage_unavailable"
	Timeout            ErrorCode = "timeout"
	InternalError      ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match two AppErrors by code, so callers can branch on
// the predefined Err* values without caring about Details.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps each failure kind to a response status. Transient kinds
// (storage_unavailable, timeout) map to 5xx so clients know to retry; the
// rest are caller-input problems.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidAmount, InvalidInput, SameAccount:
		return http.StatusBadRequest
	case AccountNotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusForbidden
	case DuplicateAccount:
		return http.StatusConflict
	case InsufficientFunds, AccountInactive:
		return http.StatusUnprocessableEntity
	case StorageUnavailable:
		return http.StatusServiceUnavailable
	case Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError extracts an AppError, wrapping anything else as internal_error.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred").WithDetails(err.Error())
}

// Predefined errors for common cases
var (
	ErrInvalidAmount      = NewAppError(InvalidAmount, "amount must be a positive value with at most two decimal places")
	ErrAccountNotFound    = NewAppError(AccountNotFound, "account not found")
	ErrAccountInactive    = NewAppError(AccountInactive, "account is deactivated")
	ErrInsufficientFunds  = NewAppError(InsufficientFunds, "insufficient funds")
	ErrSameAccount        = NewAppError(SameAccount, "source and destination accounts must differ")
	ErrDuplicateAccount   = NewAppError(DuplicateAccount, "account already exists")
	ErrStorageUnavailable = NewAppError(StorageUnavailable, "ledger store is unavailable")
	ErrTimeout            = NewAppError(Timeout, "operation timed out")
)
