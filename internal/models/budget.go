package models

import "github.com/shopspring/decimal"

// Budget is the spending limit for one category in one calendar month of a wallet.
// SpentAmount is a running total of expense transactions in that month.
type Budget struct {
	Base
	WalletID    string          `gorm:"not null;uniqueIndex:uq_budgets_wallet_category_period" json:"wallet_id"`
	Category    string          `gorm:"not null;uniqueIndex:uq_budgets_wallet_category_period" json:"category"`
	Month       int             `gorm:"not null;uniqueIndex:uq_budgets_wallet_category_period" json:"month"`
	Year        int             `gorm:"not null;uniqueIndex:uq_budgets_wallet_category_period" json:"year"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	SpentAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"spent_amount"`
	Version     int64           `gorm:"not null;default:0" json:"version"`
}

// Remaining returns the amount left before the budget is exceeded.
func (b Budget) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.SpentAmount)
}
