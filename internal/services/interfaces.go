package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwise/internal/models"
	"walletwise/internal/notify"
	"walletwise/internal/pagination"
	"walletwise/internal/schedule"
)

// Notifier receives wallet change events after a mutation commits.
type Notifier interface {
	Notify(ctx context.Context, walletID string, kind notify.EventKind)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, notify.EventKind) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// WalletServicer defines the contract for wallet and membership logic.
type WalletServicer interface {
	CreateWallet(ownerID, name string, kind models.WalletKind) (*models.Wallet, error)
	GetUserWallets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Wallet], error)
	GetWalletByID(userID, walletID string) (*models.Wallet, error)
	AddMember(inviterID, walletID, userID string) (*models.WalletMember, error)
	GetMembers(userID, walletID string) ([]models.WalletMember, error)
	RequireMember(userID, walletID string) error
}

// MutationKind tells the budget tracker how a transaction changed.
type MutationKind string

const (
	MutationCreated MutationKind = "created"
	MutationUpdated MutationKind = "updated"
	MutationDeleted MutationKind = "deleted"
)

// BudgetTracker keeps Budget.SpentAmount in step with expense transactions.
// Both methods run on the caller's database transaction.
type BudgetTracker interface {
	ApplyDelta(tx *gorm.DB, walletID, category string, date time.Time, delta decimal.Decimal) (bool, error)
	RecordTransactionMutation(tx *gorm.DB, kind MutationKind, current, previous *models.Transaction) (int, error)
}

// TransactionInput carries the fields of a new transaction.
type TransactionInput struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	Type        models.TransactionType
	Category    string
	Date        time.Time
}

// TransactionUpdate carries optional field changes; nil means unchanged.
type TransactionUpdate struct {
	Title       *string
	Description *string
	Amount      *decimal.Decimal
	Type        *models.TransactionType
	Category    *string
	Date        *time.Time
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate        *time.Time
	ToDate          *time.Time
	Type            *models.TransactionType
	Category        *string
	RecurringRuleID *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, walletID string, in TransactionInput) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, in TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetWalletTransactions(userID, walletID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// BudgetProgress contains spending vs budget data for one budget row.
type BudgetProgress struct {
	Budget     models.Budget   `json:"budget"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage float64         `json:"percentage"`
	Exceeded   bool            `json:"exceeded"`
}

// RecomputeResult reports what a spent-amount repair changed.
type RecomputeResult struct {
	WalletID       string `json:"wallet_id"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	BudgetsChecked int    `json:"budgets_checked"`
	BudgetsFixed   int    `json:"budgets_fixed"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	SetBudget(userID, walletID, category string, amount decimal.Decimal, month, year int) (*models.Budget, error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	GetWalletBudgets(userID, walletID string, month, year int) ([]BudgetProgress, error)
	DeleteBudget(userID, budgetID string) error
	RecomputeSpent(walletID string, month, year int) (*RecomputeResult, error)
}

// RecurringRuleInput carries the fields of a new recurring rule.
type RecurringRuleInput struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	Type        models.TransactionType
	Category    string
	Frequency   schedule.Frequency
	StartDate   time.Time
	EndDate     *time.Time
}

// RecurringRuleUpdate carries optional field changes; nil means unchanged.
// ClearEndDate removes an existing end date.
type RecurringRuleUpdate struct {
	Title        *string
	Description  *string
	Amount       *decimal.Decimal
	Type         *models.TransactionType
	Category     *string
	Frequency    *schedule.Frequency
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
}

// RecurringRuleServicer defines the contract for recurring rule management.
type RecurringRuleServicer interface {
	CreateRecurringRule(userID, walletID string, in RecurringRuleInput) (*models.RecurringRule, error)
	UpdateRecurringRule(userID, ruleID string, in RecurringRuleUpdate) (*models.RecurringRule, error)
	DeleteRecurringRule(userID, ruleID string) error
	GetRecurringRule(userID, ruleID string) (*models.RecurringRule, error)
	GetWalletRecurringRules(userID, walletID string, page pagination.PageRequest, active *bool) (*pagination.PageResponse[models.RecurringRule], error)
}

// CategoryInput carries the fields of a new custom category.
type CategoryInput struct {
	Name        string
	Type        models.TransactionType
	Description string
	Icon        string
}

// CategoryUpdate carries optional field changes; nil means unchanged.
type CategoryUpdate struct {
	Name        *string
	Type        *models.TransactionType
	Description *string
	Icon        *string
}

// CategoryServicer defines the contract for the wallet category catalog.
type CategoryServicer interface {
	EnsureDefaults() error
	ListWalletCategories(userID, walletID string, categoryType *models.TransactionType) ([]models.Category, error)
	CreateCategory(userID, walletID string, in CategoryInput) (*models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, in CategoryUpdate) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// RuleFailure describes one rule whose catch-up stopped early.
type RuleFailure struct {
	RuleID   string    `json:"rule_id"`
	WalletID string    `json:"wallet_id"`
	Period   time.Time `json:"period"`
	Error    string    `json:"error"`
}

// RunResult summarizes one materialization run.
type RunResult struct {
	Today               time.Time     `json:"today"`
	RulesDue            int           `json:"rules_due"`
	RulesProcessed      int           `json:"rules_processed"`
	TransactionsCreated int           `json:"transactions_created"`
	RulesRetired        int           `json:"rules_retired"`
	Conflicts           int           `json:"conflicts"`
	Failures            []RuleFailure `json:"failures"`
	Duration            time.Duration `json:"duration_ns"`
}

// Materializer turns elapsed recurring-rule periods into transactions.
type Materializer interface {
	RunDueRules(ctx context.Context, today time.Time) (*RunResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, walletID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
