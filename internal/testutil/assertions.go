package testutil

import (
	"errors"
	"testing"
	"time"

	apperrors "walletwise/internal/errors"

	"github.com/shopspring/decimal"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertDecimal compares decimals by value, ignoring representation scale.
func AssertDecimal(t *testing.T, got decimal.Decimal, want string, what string) {
	t.Helper()

	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", what, want, got.String())
	}
}

// AssertDate compares the calendar day of got against a YYYY-MM-DD string.
func AssertDate(t *testing.T, got time.Time, want string, what string) {
	t.Helper()

	if g := got.UTC().Format("2006-01-02"); g != want {
		t.Errorf("%s: expected %s, got %s", what, want, g)
	}
}
