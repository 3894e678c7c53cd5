package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/notify"
	"walletwise/internal/pagination"
	"walletwise/internal/schedule"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db       *gorm.DB
	budgets  BudgetTracker
	notifier Notifier
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, budgets BudgetTracker, notifier Notifier) TransactionServicer {
	return &transactionService{
		db:       db,
		budgets:  budgets,
		notifier: notifierOrNoop(notifier),
	}
}

func validateTransaction(t *models.Transaction) error {
	if strings.TrimSpace(t.Title) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if strings.TrimSpace(t.Category) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if !models.ValidAmount(t.Amount) {
		return apperrors.ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if t.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}
	return nil
}

// CreateTransaction records a transaction and charges its budget in one commit.
func (s *transactionService) CreateTransaction(userID, walletID string, in TransactionInput) (*models.Transaction, error) {
	transaction := &models.Transaction{
		WalletID:    walletID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Date:        schedule.Day(in.Date),
	}
	if in.Date.IsZero() {
		transaction.Date = schedule.Day(time.Now())
	}
	if err := validateTransaction(transaction); err != nil {
		return nil, err
	}
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	var budgetsChanged int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		n, err := s.budgets.RecordTransactionMutation(tx, MutationCreated, transaction, nil)
		budgetsChanged = n
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announce(walletID, notify.TransactionCreated, budgetsChanged)
	return transaction, nil
}

// UpdateTransaction applies the changed fields. The row is re-read under a
// row lock so the budget retraction uses the values actually replaced.
func (s *transactionService) UpdateTransaction(userID, transactionID string, in TransactionUpdate) (*models.Transaction, error) {
	if _, err := s.GetTransactionByID(userID, transactionID); err != nil {
		return nil, err
	}

	var (
		updated        models.Transaction
		budgetsChanged int
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		previous, err := lockTransaction(tx, transactionID)
		if err != nil {
			return err
		}
		updated = applyTransactionUpdate(*previous, in)
		if err := validateTransaction(&updated); err != nil {
			return err
		}

		res := tx.Model(&models.Transaction{}).Where("id = ?", previous.ID).Updates(map[string]interface{}{
			"title":       updated.Title,
			"description": updated.Description,
			"amount":      updated.Amount,
			"type":        updated.Type,
			"category":    updated.Category,
			"date":        updated.Date,
		})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}
		n, err := s.budgets.RecordTransactionMutation(tx, MutationUpdated, &updated, previous)
		budgetsChanged = n
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announce(updated.WalletID, notify.TransactionUpdated, budgetsChanged)
	return &updated, nil
}

func applyTransactionUpdate(t models.Transaction, in TransactionUpdate) models.Transaction {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Amount != nil {
		t.Amount = *in.Amount
	}
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Category != nil {
		t.Category = strings.TrimSpace(*in.Category)
	}
	if in.Date != nil {
		t.Date = schedule.Day(*in.Date)
	}
	return t
}

// DeleteTransaction soft-deletes a transaction and refunds its budget with
// the amount of the row as it was when deleted.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	if _, err := s.GetTransactionByID(userID, transactionID); err != nil {
		return err
	}

	var (
		deleted        *models.Transaction
		budgetsChanged int
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := lockTransaction(tx, transactionID)
		if err != nil {
			return err
		}
		res := tx.Delete(&models.Transaction{}, "id = ?", current.ID)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}
		deleted = current
		n, err := s.budgets.RecordTransactionMutation(tx, MutationDeleted, current, nil)
		budgetsChanged = n
		return err
	})
	if err != nil {
		return err
	}

	s.announce(deleted.WalletID, notify.TransactionDeleted, budgetsChanged)
	return nil
}

// lockTransaction reads a live transaction inside tx and holds its row lock
// until tx ends. SQLite has no row locks; its write transaction serializes instead.
func lockTransaction(tx *gorm.DB, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", transactionID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetTransactionByID returns a transaction if userID belongs to its wallet.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := requireMember(s.db, userID, transaction.WalletID); err != nil {
		return nil, err
	}
	return &transaction, nil
}

// GetWalletTransactions returns a filtered page of a wallet's transactions, newest first.
func (s *transactionService) GetWalletTransactions(userID, walletID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Transaction{}).Where("wallet_id = ?", walletID)
	base = applyTransactionFilters(base, filter)

	result, err := pagination.Fetch[models.Transaction](base, page, "date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(db *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		db = db.Where("date >= ?", schedule.Day(*f.FromDate))
	}
	if f.ToDate != nil {
		db = db.Where("date <= ?", schedule.Day(*f.ToDate))
	}
	if f.Type != nil {
		db = db.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		db = db.Where("category = ?", *f.Category)
	}
	if f.RecurringRuleID != nil {
		db = db.Where("recurring_rule_id = ?", *f.RecurringRuleID)
	}
	return db
}

func (s *transactionService) announce(walletID string, kind notify.EventKind, budgetsChanged int) {
	ctx := context.Background()
	s.notifier.Notify(ctx, walletID, kind)
	if budgetsChanged > 0 {
		s.notifier.Notify(ctx, walletID, notify.BudgetUpdated)
	}
}
