package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/schedule"
	"walletwise/internal/services"
)

// RecurringRuleHandler handles recurring rule requests.
type RecurringRuleHandler struct {
	ruleService  services.RecurringRuleServicer
	auditService services.AuditServicer
}

// NewRecurringRuleHandler creates a new RecurringRuleHandler.
func NewRecurringRuleHandler(ruleService services.RecurringRuleServicer, auditService services.AuditServicer) *RecurringRuleHandler {
	return &RecurringRuleHandler{ruleService: ruleService, auditService: auditService}
}

// CreateRecurringRuleRequest represents the request payload for creating a recurring rule
type CreateRecurringRuleRequest struct {
	Title       string                 `json:"title" binding:"required,max=200"`
	Description string                 `json:"description" binding:"max=500"`
	Amount      decimal.Decimal        `json:"amount" binding:"required,positive_amount" swaggertype:"string" example:"1200.00"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Category    string                 `json:"category" binding:"required,max=100"`
	Frequency   string                 `json:"frequency" binding:"required,frequency" example:"MONTHLY"`
	StartDate   string                 `json:"start_date" binding:"required" example:"2025-01-31"`
	EndDate     *string                `json:"end_date" example:"2025-12-31"`
}

// UpdateRecurringRuleRequest represents the request payload for editing a recurring rule.
// Changing start_date restarts the schedule from the new date.
type UpdateRecurringRuleRequest struct {
	Title        *string                 `json:"title" binding:"omitempty,max=200"`
	Description  *string                 `json:"description" binding:"omitempty,max=500"`
	Amount       *decimal.Decimal        `json:"amount" binding:"omitempty,positive_amount" swaggertype:"string"`
	Type         *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Category     *string                 `json:"category" binding:"omitempty,max=100"`
	Frequency    *string                 `json:"frequency" binding:"omitempty,frequency"`
	StartDate    *string                 `json:"start_date"`
	EndDate      *string                 `json:"end_date"`
	ClearEndDate bool                    `json:"clear_end_date"`
}

// CreateRecurringRule handles recurring rule creation
// @Summary     Create a recurring rule
// @Description The first transaction is materialized on start_date by the next scheduler run.
// @Tags        recurring-rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                     true "Wallet ID"
// @Param       request body CreateRecurringRuleRequest true "Rule details"
// @Success     201 {object} models.RecurringRule
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/recurring-rules [post]
func (h *RecurringRuleHandler) CreateRecurringRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid start_date: "+err.Error()))
		return
	}
	end, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.CreateRecurringRule(userID, walletID, services.RecurringRuleInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Frequency:   schedule.Frequency(req.Frequency),
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, walletID, services.AuditCreateRecurringRule, "recurring_rule", rule.ID, c.ClientIP(),
		map[string]interface{}{"frequency": rule.Frequency, "amount": rule.Amount.String(), "start_date": rule.StartDate.Format(dateLayout)})

	c.JSON(http.StatusCreated, gin.H{"recurring_rule": rule})
}

// GetWalletRecurringRules lists a wallet's recurring rules
// @Summary     List recurring rules
// @Tags        recurring-rules
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Wallet ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       active    query bool   false "Only active or only retired rules"
// @Success     200 {object} pagination.PageResponse[models.RecurringRule]
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/recurring-rules [get]
func (h *RecurringRuleHandler) GetWalletRecurringRules(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	var active *bool
	if v := c.Query("active"); v != "" {
		b, parseErr := strconv.ParseBool(v)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "active must be true or false"))
			return
		}
		active = &b
	}

	result, err := h.ruleService.GetWalletRecurringRules(userID, walletID, page, active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringRule returns one recurring rule
// @Summary     Get a recurring rule
// @Tags        recurring-rules
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} models.RecurringRule
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring-rules/{id} [get]
func (h *RecurringRuleHandler) GetRecurringRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.GetRecurringRule(userID, ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_rule": rule})
}

// UpdateRecurringRule edits a recurring rule
// @Summary     Update a recurring rule
// @Tags        recurring-rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                     true "Rule ID"
// @Param       request body UpdateRecurringRuleRequest true "Fields to change"
// @Success     200 {object} models.RecurringRule
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     409 {object} ErrorResponse "Rule advanced concurrently"
// @Router      /recurring-rules/{id} [patch]
func (h *RecurringRuleHandler) UpdateRecurringRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	start, err := parseOptionalDate(req.StartDate, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	upd := services.RecurringRuleUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Amount:       req.Amount,
		Type:         req.Type,
		Category:     req.Category,
		StartDate:    start,
		EndDate:      end,
		ClearEndDate: req.ClearEndDate,
	}
	if req.Frequency != nil {
		f := schedule.Frequency(*req.Frequency)
		upd.Frequency = &f
	}

	rule, err := h.ruleService.UpdateRecurringRule(userID, ruleID, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, rule.WalletID, services.AuditUpdateRecurringRule, "recurring_rule", rule.ID, c.ClientIP(),
		map[string]interface{}{"active": rule.Active, "next_execution_date": rule.NextExecutionDate.Format(dateLayout)})

	c.JSON(http.StatusOK, gin.H{"recurring_rule": rule})
}

// DeleteRecurringRule removes a recurring rule. Transactions it already
// produced are kept.
// @Summary     Delete a recurring rule
// @Tags        recurring-rules
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Router      /recurring-rules/{id} [delete]
func (h *RecurringRuleHandler) DeleteRecurringRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.GetRecurringRule(userID, ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ruleService.DeleteRecurringRule(userID, ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, rule.WalletID, services.AuditDeleteRecurringRule, "recurring_rule", ruleID, c.ClientIP(),
		map[string]interface{}{"title": rule.Title})

	c.Status(http.StatusNoContent)
}
