package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
)

// budgetTracker applies signed expense deltas to the matching budget row.
// It holds no state; every call runs on the caller's transaction so the
// delta commits or rolls back together with the transaction row.
type budgetTracker struct{}

// NewBudgetTracker creates a new BudgetTracker.
func NewBudgetTracker() BudgetTracker {
	return budgetTracker{}
}

// ApplyDelta adds delta to the spent amount of the budget for walletID,
// category and the calendar month of date. The increment is a single
// UPDATE so concurrent writers never lose each other's deltas. A missing
// budget is not an error; it reports false.
func (budgetTracker) ApplyDelta(tx *gorm.DB, walletID, category string, date time.Time, delta decimal.Decimal) (bool, error) {
	if delta.IsZero() {
		return false, nil
	}

	day := date.UTC()
	res := tx.Model(&models.Budget{}).
		Where("wallet_id = ? AND category = ? AND month = ? AND year = ?", walletID, category, int(day.Month()), day.Year()).
		Updates(map[string]interface{}{
			"spent_amount": gorm.Expr("spent_amount + ?", delta),
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecordTransactionMutation translates a transaction change into budget
// deltas. Only expenses count. An update retracts the previous version
// under its own category and month before applying the current one.
// It returns how many budget rows changed.
func (t budgetTracker) RecordTransactionMutation(tx *gorm.DB, kind MutationKind, current, previous *models.Transaction) (int, error) {
	changed := 0
	apply := func(txn *models.Transaction, sign int64) error {
		if txn == nil || txn.Type != models.TransactionTypeExpense {
			return nil
		}
		ok, err := t.ApplyDelta(tx, txn.WalletID, txn.Category, txn.Date, txn.Amount.Mul(decimal.NewFromInt(sign)))
		if ok {
			changed++
		}
		return err
	}

	switch kind {
	case MutationCreated:
		return changed, apply(current, 1)
	case MutationUpdated:
		if err := apply(previous, -1); err != nil {
			return changed, err
		}
		return changed, apply(current, 1)
	case MutationDeleted:
		return changed, apply(current, -1)
	default:
		return 0, apperrors.WithMessage(apperrors.ErrInternalServer, "unknown mutation kind "+string(kind))
	}
}
