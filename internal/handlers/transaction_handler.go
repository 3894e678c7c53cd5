package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/services"
	"walletwise/internal/uuid"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Title       string                 `json:"title" binding:"required,max=200"`
	Description string                 `json:"description" binding:"max=500"`
	Amount      decimal.Decimal        `json:"amount" binding:"required,positive_amount" swaggertype:"string" example:"12.50"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Category    string                 `json:"category" binding:"required,max=100"`
	Date        *string                `json:"date" example:"2025-01-31"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// Omitted fields are left unchanged.
type UpdateTransactionRequest struct {
	Title       *string                 `json:"title" binding:"omitempty,max=200"`
	Description *string                 `json:"description" binding:"omitempty,max=500"`
	Amount      *decimal.Decimal        `json:"amount" binding:"omitempty,positive_amount" swaggertype:"string"`
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Category    *string                 `json:"category" binding:"omitempty,max=100"`
	Date        *string                 `json:"date"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense in a wallet. Expenses count against the matching monthly budget.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Wallet ID"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /wallets/{id}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
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

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.TransactionInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
	}
	if date != nil {
		in.Date = *date
	}

	transaction, err := h.transactionService.CreateTransaction(userID, walletID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, walletID, services.AuditCreateTransaction, "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": transaction.Type, "amount": transaction.Amount.String(), "category": transaction.Category})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetWalletTransactions lists a wallet's transactions
// @Summary     List wallet transactions
// @Description Paginated, newest first, with optional filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id                path  string true  "Wallet ID"
// @Param       page              query int    false "Page number (default 1)"
// @Param       page_size         query int    false "Items per page (default 20, max 100)"
// @Param       from_date         query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date           query string false "Latest date (YYYY-MM-DD)"
// @Param       type              query string false "income or expense"
// @Param       category          query string false "Category name"
// @Param       recurring_rule_id query string false "Only transactions materialized from this rule"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/transactions [get]
func (h *TransactionHandler) GetWalletTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetWalletTransactions(userID, walletID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction returns one transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction changes a transaction and moves budget consumption with it
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} models.Transaction
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, services.TransactionUpdate{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Date:        date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, transaction.WalletID, services.AuditUpdateTransaction, "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"amount": transaction.Amount.String(), "category": transaction.Category, "date": transaction.Date.Format(dateLayout)})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a transaction and releases its budget consumption
// @Summary     Delete a transaction
// @Tags        transactions
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	existing, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, existing.WalletID, services.AuditDeleteTransaction, "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"amount": existing.Amount.String(), "category": existing.Category})

	c.Status(http.StatusNoContent)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("from_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(strings.ToLower(v))
		if !txType.Valid() {
			return filter, apperrors.ErrInvalidTransactionType
		}
		filter.Type = &txType
	}

	if v := strings.TrimSpace(c.Query("category")); v != "" {
		filter.Category = &v
	}

	if v := c.Query("recurring_rule_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid recurring_rule_id")
		}
		filter.RecurringRuleID = &id
	}

	return filter, nil
}
