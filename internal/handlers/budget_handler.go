package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
	now           func() time.Time
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService, now: time.Now}
}

// SetBudgetRequest represents the request payload for creating or replacing a monthly budget
type SetBudgetRequest struct {
	Category string          `json:"category" binding:"required,max=100"`
	Amount   decimal.Decimal `json:"amount" binding:"required,positive_amount" swaggertype:"string" example:"400.00"`
	Month    int             `json:"month" binding:"required,min=1,max=12"`
	Year     int             `json:"year" binding:"required,min=1970,max=9999"`
}

// SetBudget handles budget creation or update
// @Summary     Set a monthly budget
// @Description Create the budget for a category and month, or change its amount if it exists. Spent starts at zero.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Wallet ID"
// @Param       request body SetBudgetRequest true "Budget details"
// @Success     200 {object} models.Budget
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/budgets [put]
func (h *BudgetHandler) SetBudget(c *gin.Context) {
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

	var req SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	budget, err := h.budgetService.SetBudget(userID, walletID, req.Category, req.Amount, req.Month, req.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, walletID, services.AuditSetBudget, "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"category": budget.Category, "amount": budget.Amount.String(), "month": budget.Month, "year": budget.Year})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetWalletBudgets lists a wallet's budgets for one month with progress
// @Summary     List monthly budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Wallet ID"
// @Param       month query int    false "Month 1-12 (default current)"
// @Param       year  query int    false "Year (default current)"
// @Success     200 {array} services.BudgetProgress
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/budgets [get]
func (h *BudgetHandler) GetWalletBudgets(c *gin.Context) {
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

	month, year, err := parseMonthYear(c, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgets, err := h.budgetService.GetWalletBudgets(userID, walletID, month, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets, "month": month, "year": year})
}

// GetBudget returns one budget
// @Summary     Get a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget removes a budget
// @Summary     Delete a budget
// @Tags        budgets
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, budget.WalletID, services.AuditDeleteBudget, "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"category": budget.Category, "month": budget.Month, "year": budget.Year})

	c.Status(http.StatusNoContent)
}

// parseMonthYear reads month/year query parameters, defaulting to now.
func parseMonthYear(c *gin.Context, now time.Time) (int, int, error) {
	month, year := int(now.Month()), now.Year()

	if v := c.Query("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
		}
		month = m
	}
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			return 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid year")
		}
		year = y
	}
	return month, year, nil
}
