// Package errors defines the error taxonomy shared by every walletwise service.
// Services return *AppError so handlers can map failures to stable codes and
// HTTP statuses without exposing store or broker details to clients.
package errors

import (
	stderrors "errors"
	"net/http"
)

// AppError carries a stable code, a client-safe message, the HTTP status it maps
// to and the underlying cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Unwrap exposes the internal cause to errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches AppErrors by code so wrapped copies still compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap copies a sentinel and attaches the internal cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage copies a sentinel with a custom client message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// As extracts an *AppError from err, if there is one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}

	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Wallet errors.
var (
	ErrWalletNotFound      = &AppError{Code: "WALLET_NOT_FOUND", Message: "Wallet not found", StatusCode: http.StatusNotFound}
	ErrNotWalletMember     = &AppError{Code: "NOT_WALLET_MEMBER", Message: "You are not a member of this wallet", StatusCode: http.StatusForbidden}
	ErrNotWalletOwner      = &AppError{Code: "NOT_WALLET_OWNER", Message: "Only the wallet owner can do this", StatusCode: http.StatusForbidden}
	ErrAlreadyWalletMember = &AppError{Code: "ALREADY_WALLET_MEMBER", Message: "User is already a member of this wallet", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Transaction type must be income or expense", StatusCode: http.StatusBadRequest}
	ErrInvalidAmount          = &AppError{Code: "INVALID_AMOUNT", Message: "Amount must be greater than zero with at most two decimal places", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryExists   = &AppError{Code: "CATEGORY_EXISTS", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
	ErrDefaultCategory  = &AppError{Code: "DEFAULT_CATEGORY", Message: "Default categories cannot be changed", StatusCode: http.StatusForbidden}
)

// Budget errors.
var (
	ErrBudgetNotFound = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
)

// Recurring rule errors.
var (
	ErrRecurringRuleNotFound = &AppError{Code: "RECURRING_RULE_NOT_FOUND", Message: "Recurring rule not found", StatusCode: http.StatusNotFound}
	ErrInvalidFrequency      = &AppError{Code: "INVALID_FREQUENCY", Message: "Frequency must be DAILY, WEEKLY, MONTHLY or YEARLY", StatusCode: http.StatusBadRequest}
	ErrInvalidDateRange      = &AppError{Code: "INVALID_DATE_RANGE", Message: "End date must not be before start date", StatusCode: http.StatusBadRequest}
	ErrRuleConflict          = &AppError{Code: "RULE_CONFLICT", Message: "Recurring rule was modified concurrently", StatusCode: http.StatusConflict}
)
