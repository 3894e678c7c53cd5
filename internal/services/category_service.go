package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
)

// DefaultCategories seed the shared part of every wallet's catalog.
var DefaultCategories = []CategoryInput{
	{Name: "Food", Type: models.TransactionTypeExpense, Icon: "utensils"},
	{Name: "Transport", Type: models.TransactionTypeExpense, Icon: "bus"},
	{Name: "Housing", Type: models.TransactionTypeExpense, Icon: "home"},
	{Name: "Utilities", Type: models.TransactionTypeExpense, Icon: "bolt"},
	{Name: "Health", Type: models.TransactionTypeExpense, Icon: "heart"},
	{Name: "Entertainment", Type: models.TransactionTypeExpense, Icon: "film"},
	{Name: "Shopping", Type: models.TransactionTypeExpense, Icon: "bag"},
	{Name: "Education", Type: models.TransactionTypeExpense, Icon: "book"},
	{Name: "Salary", Type: models.TransactionTypeIncome, Icon: "briefcase"},
	{Name: "Investment", Type: models.TransactionTypeIncome, Icon: "chart"},
	{Name: "Gift", Type: models.TransactionTypeIncome, Icon: "gift"},
}

// categoryService handles the category catalog: shared defaults plus the
// custom categories each wallet adds.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

func validateCategory(c *models.Category) error {
	if c.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if !c.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	return nil
}

// EnsureDefaults inserts any default category that is missing. Existing
// defaults are left untouched.
func (s *categoryService) EnsureDefaults() error {
	var existing []string
	if err := s.db.Model(&models.Category{}).Where("wallet_id IS NULL").Pluck("name_key", &existing).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	have := make(map[string]bool, len(existing))
	for _, k := range existing {
		have[k] = true
	}

	var missing []models.Category
	for _, d := range DefaultCategories {
		key := models.CategoryKey(d.Name)
		if have[key] {
			continue
		}
		missing = append(missing, models.Category{Name: d.Name, NameKey: key, Type: d.Type, Description: d.Description, Icon: d.Icon})
	}
	if len(missing) == 0 {
		return nil
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&missing).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListWalletCategories returns the defaults plus walletID's custom
// categories, ordered by name.
func (s *categoryService) ListWalletCategories(userID, walletID string, categoryType *models.TransactionType) ([]models.Category, error) {
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	q := s.db.Where("wallet_id IS NULL OR wallet_id = ?", walletID)
	if categoryType != nil {
		q = q.Where("type = ?", *categoryType)
	}

	categories := []models.Category{}
	if err := q.Order("name_key ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// CreateCategory adds a custom category to walletID. The name must not
// match, ignoring case, a default or another category of the wallet.
func (s *categoryService) CreateCategory(userID, walletID string, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	category := &models.Category{
		WalletID:    &walletID,
		Name:        name,
		NameKey:     models.CategoryKey(name),
		Type:        models.TransactionType(strings.ToLower(string(in.Type))),
		Description: in.Description,
		Icon:        in.Icon,
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, walletID, category.NameKey, ""); err != nil {
			return err
		}
		// A concurrent create of the same name lands on the unique index.
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(category)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrCategoryExists
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategoryByID returns a category. Defaults are readable by anyone;
// custom categories only by members of their wallet.
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !category.IsDefault() {
		if err := requireMember(s.db, userID, *category.WalletID); err != nil {
			return nil, err
		}
	}
	return &category, nil
}

// UpdateCategory edits a custom category. Defaults are read-only.
func (s *categoryService) UpdateCategory(userID, categoryID string, in CategoryUpdate) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}
	if category.IsDefault() {
		return nil, apperrors.ErrDefaultCategory
	}

	updated := *category
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
		updated.NameKey = models.CategoryKey(updated.Name)
	}
	if in.Type != nil {
		updated.Type = models.TransactionType(strings.ToLower(string(*in.Type)))
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Icon != nil {
		updated.Icon = *in.Icon
	}
	if err := validateCategory(&updated); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if updated.NameKey != category.NameKey {
			if err := ensureNameFree(tx, *category.WalletID, updated.NameKey, category.ID); err != nil {
				return err
			}
		}
		return tx.Model(&models.Category{}).Where("id = ?", category.ID).Updates(map[string]interface{}{
			"name":        updated.Name,
			"name_key":    updated.NameKey,
			"type":        updated.Type,
			"description": updated.Description,
			"icon":        updated.Icon,
		}).Error
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &updated, nil
}

// DeleteCategory removes a custom category. Transactions and budgets keep
// their category label.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}
	if category.IsDefault() {
		return apperrors.ErrDefaultCategory
	}
	if err := s.db.Unscoped().Delete(&models.Category{}, "id = ?", category.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ensureNameFree fails with ErrCategoryExists when key is already used by a
// default or by another category of walletID.
func ensureNameFree(tx *gorm.DB, walletID, key, exceptID string) error {
	q := tx.Model(&models.Category{}).
		Where("name_key = ?", key).
		Where("wallet_id IS NULL OR wallet_id = ?", walletID)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrCategoryExists
	}
	return nil
}
