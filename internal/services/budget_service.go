package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

func validateBudgetPeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "year is out of range")
	}
	return nil
}

// SetBudget creates the budget for (wallet, category, month, year) or
// updates its cap. A new budget starts with nothing spent.
func (s *budgetService) SetBudget(userID, walletID, category string, amount decimal.Decimal, month, year int) (*models.Budget, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if !models.ValidAmount(amount) {
		return nil, apperrors.ErrInvalidAmount
	}
	if err := validateBudgetPeriod(month, year); err != nil {
		return nil, err
	}
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	// Upsert on the unique key; an existing row keeps its spent_amount.
	budget := models.Budget{
		WalletID:    walletID,
		Category:    category,
		Month:       month,
		Year:        year,
		Amount:      amount,
		SpentAmount: decimal.Zero,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "wallet_id"}, {Name: "category"}, {Name: "month"}, {Name: "year"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).Create(&budget).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		budget = models.Budget{}
		if err := tx.Where("wallet_id = ? AND category = ? AND month = ? AND year = ?", walletID, category, month, year).
			First(&budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// GetBudgetByID returns a budget if userID belongs to its wallet.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := requireMember(s.db, userID, budget.WalletID); err != nil {
		return nil, err
	}
	return &budget, nil
}

// GetWalletBudgets returns every budget of a wallet for one month with its progress.
func (s *budgetService) GetWalletBudgets(userID, walletID string, month, year int) ([]BudgetProgress, error) {
	if err := validateBudgetPeriod(month, year); err != nil {
		return nil, err
	}
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	var budgets []models.Budget
	if err := s.db.Where("wallet_id = ? AND month = ? AND year = ?", walletID, month, year).
		Order("category ASC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	progress := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		progress = append(progress, newBudgetProgress(b))
	}
	return progress, nil
}

func newBudgetProgress(b models.Budget) BudgetProgress {
	var pct float64
	if b.Amount.IsPositive() {
		pct, _ = b.SpentAmount.Div(b.Amount).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	}
	return BudgetProgress{
		Budget:     b,
		Remaining:  b.Remaining(),
		Percentage: pct,
		Exceeded:   b.SpentAmount.GreaterThan(b.Amount),
	}
}

// DeleteBudget removes the budget row. Transactions are untouched.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	// Hard delete so the (wallet, category, month, year) key can be set again.
	if err := s.db.Unscoped().Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecomputeSpent rebuilds spent amounts for a wallet's month from the
// transaction history. It repairs drift left by writes made outside the
// tracker and is safe to run at any time.
func (s *budgetService) RecomputeSpent(walletID string, month, year int) (*RecomputeResult, error) {
	if err := validateBudgetPeriod(month, year); err != nil {
		return nil, err
	}

	var exists int64
	if err := s.db.Model(&models.Wallet{}).Where("id = ?", walletID).Count(&exists).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if exists == 0 {
		return nil, apperrors.ErrWalletNotFound
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	result := &RecomputeResult{WalletID: walletID, Month: month, Year: year}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var budgets []models.Budget
		if err := tx.Where("wallet_id = ? AND month = ? AND year = ?", walletID, month, year).Find(&budgets).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, b := range budgets {
			var amounts []decimal.Decimal
			if err := tx.Model(&models.Transaction{}).
				Where("wallet_id = ? AND category = ? AND type = ? AND date >= ? AND date < ?",
					walletID, b.Category, models.TransactionTypeExpense, from, to).
				Pluck("amount", &amounts).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			spent := decimal.Zero
			for _, a := range amounts {
				spent = spent.Add(a)
			}
			result.BudgetsChecked++
			if spent.Equal(b.SpentAmount) {
				continue
			}

			if err := tx.Model(&models.Budget{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
				"spent_amount": spent,
				"version":      gorm.Expr("version + 1"),
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.BudgetsFixed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
