package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/schedule"
)

// recurringRuleService manages recurring rule templates. Materialization
// lives in the engine; this service only validates and stores rules.
type recurringRuleService struct {
	db *gorm.DB
}

// NewRecurringRuleService creates a new RecurringRuleServicer.
func NewRecurringRuleService(db *gorm.DB) RecurringRuleServicer {
	return &recurringRuleService{db: db}
}

func validateRule(r *models.RecurringRule) error {
	if strings.TrimSpace(r.Title) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if !models.ValidAmount(r.Amount) {
		return apperrors.ErrInvalidAmount
	}
	if !r.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if !r.Frequency.Valid() {
		return apperrors.ErrInvalidFrequency
	}
	if r.StartDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return apperrors.ErrInvalidDateRange
	}
	return nil
}

// CreateRecurringRule stores an active rule whose first period is due on its start date.
func (s *recurringRuleService) CreateRecurringRule(userID, walletID string, in RecurringRuleInput) (*models.RecurringRule, error) {
	start := schedule.Day(in.StartDate)
	rule := &models.RecurringRule{
		WalletID:          walletID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Amount:            in.Amount,
		Type:              in.Type,
		Category:          strings.TrimSpace(in.Category),
		Frequency:         schedule.Frequency(strings.ToUpper(string(in.Frequency))),
		StartDate:         start,
		NextExecutionDate: start,
		Active:            true,
		AnchorDay:         start.Day(),
	}
	if in.EndDate != nil {
		end := schedule.Day(*in.EndDate)
		rule.EndDate = &end
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// UpdateRecurringRule edits a rule. Changing the start date restarts the
// schedule from it and reactivates the rule; other edits keep progress.
// A frequency change keeps the pending due date and pins later periods to
// its day of month.
func (s *recurringRuleService) UpdateRecurringRule(userID, ruleID string, in RecurringRuleUpdate) (*models.RecurringRule, error) {
	rule, err := s.GetRecurringRule(userID, ruleID)
	if err != nil {
		return nil, err
	}

	updated := *rule
	if in.Title != nil {
		updated.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Amount != nil {
		updated.Amount = *in.Amount
	}
	if in.Type != nil {
		updated.Type = *in.Type
	}
	if in.Category != nil {
		updated.Category = strings.TrimSpace(*in.Category)
	}
	if in.Frequency != nil {
		updated.Frequency = schedule.Frequency(strings.ToUpper(string(*in.Frequency)))
		if updated.Frequency != rule.Frequency {
			updated.AnchorDay = schedule.Day(rule.NextExecutionDate).Day()
		}
	}
	if in.ClearEndDate {
		updated.EndDate = nil
	} else if in.EndDate != nil {
		end := schedule.Day(*in.EndDate)
		updated.EndDate = &end
	}
	if in.StartDate != nil {
		start := schedule.Day(*in.StartDate)
		if !start.Equal(schedule.Day(rule.StartDate)) {
			updated.StartDate = start
			updated.NextExecutionDate = start
			updated.Active = true
			updated.AnchorDay = start.Day()
		}
	}
	if err := validateRule(&updated); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Guard against a concurrent engine run advancing the rule between read and write.
		res := tx.Model(&models.RecurringRule{}).
			Where("id = ? AND next_execution_date = ? AND active = ?", rule.ID, rule.NextExecutionDate, rule.Active).
			Updates(map[string]interface{}{
				"title":               updated.Title,
				"description":         updated.Description,
				"amount":              updated.Amount,
				"type":                updated.Type,
				"category":            updated.Category,
				"frequency":           updated.Frequency,
				"start_date":          updated.StartDate,
				"end_date":            updated.EndDate,
				"next_execution_date": updated.NextExecutionDate,
				"active":              updated.Active,
				"anchor_day":          updated.AnchorDay,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrRuleConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRecurringRule removes a rule. Transactions it already produced stay.
func (s *recurringRuleService) DeleteRecurringRule(userID, ruleID string) error {
	rule, err := s.GetRecurringRule(userID, ruleID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetRecurringRule returns a rule if userID belongs to its wallet.
func (s *recurringRuleService) GetRecurringRule(userID, ruleID string) (*models.RecurringRule, error) {
	var rule models.RecurringRule
	if err := s.db.Where("id = ?", ruleID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := requireMember(s.db, userID, rule.WalletID); err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetWalletRecurringRules lists a wallet's rules ordered by next due date.
func (s *recurringRuleService) GetWalletRecurringRules(userID, walletID string, page pagination.PageRequest, active *bool) (*pagination.PageResponse[models.RecurringRule], error) {
	if err := requireMember(s.db, userID, walletID); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.RecurringRule{}).Where("wallet_id = ?", walletID)
	if active != nil {
		base = base.Where("active = ?", *active)
	}

	result, err := pagination.Fetch[models.RecurringRule](base, page, "next_execution_date ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
