// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"walletwise/internal/models"
	"walletwise/internal/schedule"
)

var once sync.Once

// Register registers all custom validators with the Gin binding engine.
// Safe to call more than once.
func Register() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Configure(v)
		}
	})
}

// Configure installs the custom types and tags on v.
func Configure(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("frequency", validateFrequency)
	_ = v.RegisterValidation("wallet_kind", validateWalletKind)
	_ = v.RegisterValidation("positive_amount", validatePositiveAmount)
}

// decimalValue exposes decimals to the validator as their string form so
// "required" and the amount tags see a comparable value.
func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		if d.IsZero() {
			return ""
		}
		return d.String()
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		return d.Decimal.String()
	}
	return nil
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

func validateFrequency(fl validator.FieldLevel) bool {
	return schedule.Frequency(strings.ToUpper(fl.Field().String())).Valid()
}

func validateWalletKind(fl validator.FieldLevel) bool {
	switch models.WalletKind(fl.Field().String()) {
	case models.WalletKindPersonal, models.WalletKindShared:
		return true
	}
	return false
}

func validatePositiveAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return models.ValidAmount(d)
}
