package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"walletwise/internal/models"
	"walletwise/internal/schedule"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MustDate parses a YYYY-MM-DD string.
func MustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewUserID returns a unique external user id.
func NewUserID() string {
	return fmt.Sprintf("user-%d", nextID())
}

// CreateTestWallet creates a personal wallet owned by ownerID with an owner membership.
func CreateTestWallet(t *testing.T, db *gorm.DB, ownerID string) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		Name:    fmt.Sprintf("Test Wallet %d", nextID()),
		Kind:    models.WalletKindPersonal,
		OwnerID: ownerID,
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	AddTestMember(t, db, wallet.ID, ownerID, models.MemberRoleOwner)
	return wallet
}

// AddTestMember adds userID to the wallet with the given role.
func AddTestMember(t *testing.T, db *gorm.DB, walletID, userID string, role models.MemberRole) *models.WalletMember {
	t.Helper()

	member := &models.WalletMember{WalletID: walletID, UserID: userID, Role: role}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test wallet member: %v", err)
	}
	return member
}

// CreateTestBudget creates a budget with zero spent amount.
func CreateTestBudget(t *testing.T, db *gorm.DB, walletID, category string, amount string, month, year int) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		WalletID:    walletID,
		Category:    category,
		Month:       month,
		Year:        year,
		Amount:      decimal.RequireFromString(amount),
		SpentAmount: decimal.Zero,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestTransaction inserts a transaction row directly, bypassing budget tracking.
func CreateTestTransaction(t *testing.T, db *gorm.DB, walletID string, txType models.TransactionType, category, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		WalletID: walletID,
		Title:    fmt.Sprintf("Test Transaction %d", nextID()),
		Amount:   decimal.RequireFromString(amount),
		Type:     txType,
		Category: category,
		Date:     date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// RuleOption customizes a rule fixture.
type RuleOption func(r *models.RecurringRule)

// WithEndDate bounds the rule.
func WithEndDate(end time.Time) RuleOption {
	return func(r *models.RecurringRule) { r.EndDate = &end }
}

// WithType sets the transaction type the rule emits.
func WithType(txType models.TransactionType) RuleOption {
	return func(r *models.RecurringRule) { r.Type = txType }
}

// WithCategory sets the rule category.
func WithCategory(category string) RuleOption {
	return func(r *models.RecurringRule) { r.Category = category }
}

// WithAmount sets the rule amount.
func WithAmount(amount string) RuleOption {
	return func(r *models.RecurringRule) { r.Amount = decimal.RequireFromString(amount) }
}

// WithNextExecution overrides the next due date.
func WithNextExecution(next time.Time) RuleOption {
	return func(r *models.RecurringRule) { r.NextExecutionDate = next }
}

// Inactive creates the rule already retired.
func Inactive() RuleOption {
	return func(r *models.RecurringRule) { r.Active = false }
}

// CreateTestRule creates an active expense rule whose next execution is its start date.
func CreateTestRule(t *testing.T, db *gorm.DB, walletID string, freq schedule.Frequency, start time.Time, opts ...RuleOption) *models.RecurringRule {
	t.Helper()

	rule := &models.RecurringRule{
		WalletID:          walletID,
		Title:             fmt.Sprintf("Test Rule %d", nextID()),
		Amount:            decimal.RequireFromString("50.25"),
		Type:              models.TransactionTypeExpense,
		Category:          "Rent",
		Frequency:         freq,
		StartDate:         start,
		NextExecutionDate: start,
		Active:            true,
		AnchorDay:         start.Day(),
	}
	for _, opt := range opts {
		opt(rule)
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test recurring rule: %v", err)
	}
	return rule
}
