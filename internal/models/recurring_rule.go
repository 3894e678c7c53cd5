package models

import (
	"time"

	"github.com/shopspring/decimal"

	"walletwise/internal/schedule"
)

// RecurringRule is a template that materializes a transaction every period
// from StartDate until EndDate. NextExecutionDate is the due date of the
// next period not yet materialized. AnchorDay is the day of month that
// monthly and yearly periods aim for; it follows the start date and is
// re-pinned when the frequency changes mid-schedule.
type RecurringRule struct {
	Base
	WalletID          string             `gorm:"not null;index" json:"wallet_id"`
	Title             string             `gorm:"not null" json:"title"`
	Description       string             `json:"description"`
	Amount            decimal.Decimal    `gorm:"type:numeric(15,2);not null" json:"amount"`
	Type              TransactionType    `gorm:"not null" json:"type"`
	Category          string             `gorm:"not null" json:"category"`
	Frequency         schedule.Frequency `gorm:"not null" json:"frequency"`
	StartDate         time.Time          `gorm:"type:date;not null" json:"start_date"`
	EndDate           *time.Time         `gorm:"type:date" json:"end_date,omitempty"`
	NextExecutionDate time.Time          `gorm:"type:date;not null;index:idx_recurring_rules_due,priority:2" json:"next_execution_date"`
	Active            bool               `gorm:"not null;index:idx_recurring_rules_due,priority:1" json:"active"`
	AnchorDay         int                `gorm:"not null;default:0" json:"anchor_day"`
}

// TableName keeps the plural table name explicit for the raw due-rule query.
func (RecurringRule) TableName() string { return "recurring_rules" }

// Anchor returns the day of month the schedule is pinned to. Rules stored
// before the column existed fall back to their start date.
func (r RecurringRule) Anchor() int {
	if r.AnchorDay > 0 {
		return r.AnchorDay
	}
	return r.StartDate.Day()
}
