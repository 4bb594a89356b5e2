package errors

import (
	"fmt"
)

type ErrorCode string

const (
	SignatureInvalid    ErrorCode = "signature_invalid"
	ReferenceNotFound   ErrorCode = "reference_not_found"
	UserNotFound        ErrorCode = "user_not_found"
	DuplicateReference  ErrorCode = "duplicate_reference"
	InsufficientBalance ErrorCode = "insufficient_balance"
	InvalidAmount       ErrorCode = "invalid_amount"
	InvalidInput        ErrorCode = "invalid_input"
	GatewayError        ErrorCode = "gateway_error"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
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
	e.Details = details
	return e
}

// Predefined errors for common cases
var (
	ErrSignatureInvalid    = NewAppError(SignatureInvalid, "webhook signature verification failed")
	ErrReferenceNotFound   = NewAppError(ReferenceNotFound, "no transaction with this reference")
	ErrUserNotFound        = NewAppError(UserNotFound, "user not found")
	ErrDuplicateReference  = NewAppError(DuplicateReference, "transaction reference already exists")
	ErrInsufficientBalance = NewAppError(InsufficientBalance, "insufficient balance")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be greater than zero")
)
