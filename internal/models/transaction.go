package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// AmountPlaces is the number of decimal places money columns store.
const AmountPlaces = 2

// maxAmount is the first value NUMERIC(15,2) cannot hold.
var maxAmount = decimal.New(1, 13)

// ValidAmount reports whether d is positive and representable in a money
// column without rounding.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThan(maxAmount) && d.Equal(d.Round(AmountPlaces))
}

// Transaction is a single money movement inside a wallet. Date is a calendar day.
type Transaction struct {
	Base
	WalletID        string          `gorm:"not null;index" json:"wallet_id"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Category        string          `gorm:"not null;index" json:"category"`
	Date            time.Time       `gorm:"type:date;not null;index" json:"date"`
	RecurringRuleID *string         `gorm:"type:uuid;index" json:"recurring_rule_id,omitempty"`
}
