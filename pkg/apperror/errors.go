package apperror

import (
	"errors"
	"fmt"
)

// AppError is a structured error carrying a stable machine-readable code.
// Retryable marks infrastructure failures a caller may safely resubmit;
// business-rule failures are never retryable without re-validation.
type AppError struct {
	Code      string `json:"error_code"`
	Message   string `json:"message"`
	Retryable bool   `json:"-"`
	Err       error  `json:"-"` // Wrapped internal error (not exposed to callers)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Code extracts the AppError code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether err is a transient infrastructure failure the
// caller may resubmit as-is. Business-rule failures return false.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// ---- Wallet Business Rules (WAL) ----

func ErrInvalidAmount() *AppError {
	return New("WAL_001", "Amount must be a positive value")
}

func ErrAmountTooLow(minimum int64) *AppError {
	return New("WAL_002", fmt.Sprintf("Recharge amount is below the minimum of %d", minimum))
}

func ErrInsufficientBalance() *AppError {
	return New("WAL_003", "Available balance is insufficient for this operation")
}

func ErrMinimumBalanceViolation(minimum int64) *AppError {
	return New("WAL_004", fmt.Sprintf("Operation would leave available balance below the required minimum of %d", minimum))
}

func ErrRefundExceedsDebited() *AppError {
	return New("WAL_005", "Refund amount exceeds the net amount debited for this reference")
}

func ErrMalformedAdjustment() *AppError {
	return New("WAL_006", "Adjustment entry is missing a valid direction")
}

func ErrHoldNotFound() *AppError {
	return New("WAL_007", "Hold entry not found for this account")
}

func ErrHoldAlreadyReleased() *AppError {
	return New("WAL_008", "Hold has already been released")
}

func ErrMissingReference() *AppError {
	return New("WAL_009", "A reference id is required for this operation")
}

// ---- Payment Gateway (PAY) ----

func ErrGatewayDeclined(reason string) *AppError {
	return New("PAY_001", fmt.Sprintf("Payment declined by gateway: %s", reason))
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity))
}

// ---- System & Infrastructure (SYS) ----

// ErrStorage wraps a non-retryable storage failure.
func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", err)
}

// ErrStorageConflict wraps a transient storage conflict (e.g. two writers
// racing on the same account sequence). The whole operation is re-run from
// scratch on retry, so no stale validation can leak through.
func ErrStorageConflict(err error) *AppError {
	e := Wrap("SYS_002", "Storage conflict, safe to retry", err)
	e.Retryable = true
	return e
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal error", err)
}
