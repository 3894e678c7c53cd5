package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/services"
)

// CategoryHandler handles category catalog requests.
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, auditService: auditService}
}

// CreateCategoryRequest represents the request payload for creating a custom category
type CreateCategoryRequest struct {
	Name        string                 `json:"name" binding:"required,max=100"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Description string                 `json:"description" binding:"max=500"`
	Icon        string                 `json:"icon" binding:"max=50"`
}

// UpdateCategoryRequest represents the request payload for editing a custom category
type UpdateCategoryRequest struct {
	Name        *string                 `json:"name" binding:"omitempty,max=100"`
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Description *string                 `json:"description" binding:"omitempty,max=500"`
	Icon        *string                 `json:"icon" binding:"omitempty,max=50"`
}

// GetWalletCategories lists the defaults plus a wallet's custom categories
// @Summary     List categories
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string true  "Wallet ID"
// @Param       type query string false "Filter by type (income/expense)"
// @Success     200 {array} models.Category
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/categories [get]
func (h *CategoryHandler) GetWalletCategories(c *gin.Context) {
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

	var categoryType *models.TransactionType
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(strings.ToLower(v))
		if !t.Valid() {
			respondWithError(c, apperrors.ErrInvalidTransactionType)
			return
		}
		categoryType = &t
	}

	categories, err := h.categoryService.ListWalletCategories(userID, walletID, categoryType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory adds a custom category to a wallet
// @Summary     Create a category
// @Description Names are unique per wallet, ignoring case, and may not repeat a default.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Wallet ID"
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Failure     409 {object} ErrorResponse "Name already used"
// @Router      /wallets/{id}/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
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

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	category, err := h.categoryService.CreateCategory(userID, walletID, services.CategoryInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, walletID, services.AuditCreateCategory, "category", category.ID, c.ClientIP(),
		map[string]interface{}{"name": category.Name, "type": category.Type})

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// GetCategory returns one category
// @Summary     Get a category
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} models.Category
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// UpdateCategory edits a custom category
// @Summary     Update a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to change"
// @Success     200 {object} models.Category
// @Failure     403 {object} ErrorResponse "Default category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Name already used"
// @Router      /categories/{id} [patch]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	category, err := h.categoryService.UpdateCategory(userID, categoryID, services.CategoryUpdate{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, categoryWallet(category), services.AuditUpdateCategory, "category", category.ID, c.ClientIP(),
		map[string]interface{}{"name": category.Name, "type": category.Type})

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory removes a custom category
// @Summary     Delete a category
// @Description Transactions and budgets keep their category label.
// @Tags        categories
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     204 "Deleted"
// @Failure     403 {object} ErrorResponse "Default category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(userID, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, categoryWallet(category), services.AuditDeleteCategory, "category", categoryID, c.ClientIP(),
		map[string]interface{}{"name": category.Name})

	c.Status(http.StatusNoContent)
}

// categoryWallet returns the owning wallet ID, or "" for a default.
func categoryWallet(c *models.Category) string {
	if c.WalletID == nil {
		return ""
	}
	return *c.WalletID
}
