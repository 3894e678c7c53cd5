package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/services"
)

// PipelineHandler exposes the operational endpoints used by the scheduler
// and the catch-up CLI.
type PipelineHandler struct {
	materializer  services.Materializer
	budgetService services.BudgetServicer
	today         func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler. today supplies the
// business date used when a run request names none.
func NewPipelineHandler(materializer services.Materializer, budgetService services.BudgetServicer, today func() time.Time) *PipelineHandler {
	return &PipelineHandler{materializer: materializer, budgetService: budgetService, today: today}
}

// RunRecurringRequest represents the optional body of a materialization run
type RunRecurringRequest struct {
	Date string `json:"date" example:"2025-03-01"`
}

// RecomputeBudgetsRequest names the wallet month whose spent totals are rebuilt
type RecomputeBudgetsRequest struct {
	WalletID string `json:"wallet_id" binding:"required,uuid"`
	Month    int    `json:"month" binding:"required,min=1,max=12"`
	Year     int    `json:"year" binding:"required,min=1970,max=9999"`
}

// RunRecurring materializes every recurring rule due on or before the given date
// @Summary     Run recurring materialization (pipeline)
// @Description Catch up all due recurring rules. Omitting date uses today in the business timezone.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RunRecurringRequest false "Run date"
// @Success     200 {object} services.RunResult
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/recurring/run [post]
func (h *PipelineHandler) RunRecurring(c *gin.Context) {
	var req RunRecurringRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
	}

	today := h.today()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date: "+err.Error()))
			return
		}
		today = parsed
	}

	result, err := h.materializer.RunDueRules(c.Request.Context(), today)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecomputeBudgets rebuilds spent amounts for one wallet month
// @Summary     Recompute budget spending (pipeline)
// @Description Recalculate spent_amount of every budget in the month from stored expense transactions.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RecomputeBudgetsRequest true "Wallet and month"
// @Success     200 {object} services.RecomputeResult
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/budgets/recompute [post]
func (h *PipelineHandler) RecomputeBudgets(c *gin.Context) {
	var req RecomputeBudgetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	result, err := h.budgetService.RecomputeSpent(req.WalletID, req.Month, req.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
