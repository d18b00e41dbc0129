package errors

import "fmt"

// ErrorCode represents a Keep error code.
type ErrorCode string

const (
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrUnauthorized         ErrorCode = "UNAUTHORIZED"           // 403
	ErrStillLocked          ErrorCode = "STILL_LOCKED"           // 423
	ErrAlreadyConsumed      ErrorCode = "ALREADY_CONSUMED"       // 409
	ErrInvalidRecipient     ErrorCode = "INVALID_RECIPIENT"      // 400
	ErrInvalidAmount        ErrorCode = "INVALID_AMOUNT"         // 400
	ErrInvalidUnlockTime    ErrorCode = "INVALID_UNLOCK_TIME"    // 400
	ErrInvalidPayload       ErrorCode = "INVALID_PAYLOAD"        // 422
	ErrCapsuleLimitExceeded ErrorCode = "CAPSULE_LIMIT_EXCEEDED" // 429
	ErrInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"     // 402
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"        // 400
	ErrInternal             ErrorCode = "INTERNAL"               // 500
)

// LedgerError represents a structured error with code, status, and details.
type LedgerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFound creates a 404 error for an unknown capsule id.
func NewNotFound(id uint64) *LedgerError {
	return &LedgerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capsule not found: %d", id),
		Details: map[string]any{"id": id},
	}
}

// NewUnauthorized creates a 403 error for a failed role check
// (or an operation attempted while the ledger is paused).
func NewUnauthorized(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrUnauthorized,
		Status:  403,
		Message: msg,
	}
}

// NewStillLocked creates a 423 error for an unmet time precondition.
func NewStillLocked(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrStillLocked,
		Status:  423,
		Message: msg,
	}
}

// NewAlreadyConsumed creates a 409 error for a second terminal transition.
func NewAlreadyConsumed(id uint64) *LedgerError {
	return &LedgerError{
		Code:    ErrAlreadyConsumed,
		Status:  409,
		Message: fmt.Sprintf("capsule %d is already consumed", id),
		Details: map[string]any{"id": id},
	}
}

// NewInvalidRecipient creates a 400 error for self-targeting or a bad list.
func NewInvalidRecipient(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrInvalidRecipient,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidAmount creates a 400 error for a zero, negative, or over-limit value.
func NewInvalidAmount(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrInvalidAmount,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidUnlockTime creates a 400 error for a non-positive delay.
func NewInvalidUnlockTime(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrInvalidUnlockTime,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidPayload creates a 422 error for empty or over-long content.
func NewInvalidPayload(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrInvalidPayload,
		Status:  422,
		Message: msg,
	}
}

// NewCapsuleLimitExceeded creates a 429 error for the per-creator index cap.
func NewCapsuleLimitExceeded(principal string, limit int) *LedgerError {
	return &LedgerError{
		Code:    ErrCapsuleLimitExceeded,
		Status:  429,
		Message: fmt.Sprintf("principal %q has reached the capsule limit (%d)", principal, limit),
		Details: map[string]any{"principal": principal, "limit": limit},
	}
}

// NewInsufficientFunds creates a 402 error for a failed value transfer.
func NewInsufficientFunds(principal string, amount int64) *LedgerError {
	return &LedgerError{
		Code:    ErrInsufficientFunds,
		Status:  402,
		Message: fmt.Sprintf("account %q cannot cover %d", principal, amount),
		Details: map[string]any{"principal": principal, "amount": amount},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *LedgerError {
	return &LedgerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *LedgerError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &LedgerError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a LedgerError with the given code.
func Is(err error, code ErrorCode) bool {
	if lErr, ok := err.(*LedgerError); ok {
		return lErr.Code == code
	}
	return false
}
