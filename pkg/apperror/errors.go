package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a 400 for malformed or missing input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrEmptyCart() *AppError {
	return New("VAL_002", "Order requires at least one line item or an order_id", http.StatusBadRequest)
}

func ErrProductUnavailable(productID int64) *AppError {
	return New("VAL_003", fmt.Sprintf("Product %d does not exist or is inactive", productID), http.StatusBadRequest)
}

// ---- Wallet Business Logic (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient wallet balance", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrOrderNotPayable() *AppError {
	return New("WAL_003", "Order has already been paid or is not payable", http.StatusBadRequest)
}

func ErrAlreadyRedeemed() *AppError {
	return New("WAL_004", "Voucher code has already been used", http.StatusBadRequest)
}

func ErrAlreadyRefunded() *AppError {
	return New("WAL_005", "Order has already been refunded", http.StatusBadRequest)
}

func ErrNotRefundable() *AppError {
	return New("WAL_006", "Order is not in a refundable state", http.StatusBadRequest)
}

func ErrInvalidRefundAction() *AppError {
	return New("WAL_007", "Unsupported refund action for this role", http.StatusBadRequest)
}

func ErrNotPendingReview() *AppError {
	return New("WAL_008", "Order has no payment awaiting review", http.StatusBadRequest)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid username or password", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired session token", http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	if message == "" {
		message = "Operation not permitted for this role"
	}
	return New("AUTH_004", message, http.StatusForbidden)
}

func ErrAccountDisabled() *AppError {
	return New("AUTH_005", "Account is disabled", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}
