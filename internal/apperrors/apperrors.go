package apperrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeInvalidCart          ErrorCode = "INVALID_CART"
	CodeInvalidCoupon        ErrorCode = "INVALID_COUPON"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeDuplicateTransaction ErrorCode = "DUPLICATE_TRANSACTION"
	CodePersistenceConflict  ErrorCode = "PERSISTENCE_CONFLICT"
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

// As extracts an *AppError from an error chain, if present.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func InvalidCart(message string) *AppError {
	return New(CodeInvalidCart, message, http.StatusBadRequest)
}

// InvalidCoupon carries the validation reason so callers can show it verbatim.
func InvalidCoupon(reason string) *AppError {
	return &AppError{
		Code:     CodeInvalidCoupon,
		Message:  "coupon failed validation",
		Details:  reason,
		HTTPCode: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func PersistenceConflict(err error) *AppError {
	return Wrap(err, CodePersistenceConflict, "write conflicted with a concurrent update", http.StatusServiceUnavailable)
}

func Internal(err error) *AppError {
	return Wrap(err, CodeInternalError, "internal error", http.StatusInternalServerError)
}
