package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/services"
)

// WalletHandler handles wallet and membership requests.
type WalletHandler struct {
	walletService services.WalletServicer
	auditService  services.AuditServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService services.WalletServicer, auditService services.AuditServicer) *WalletHandler {
	return &WalletHandler{walletService: walletService, auditService: auditService}
}

// CreateWalletRequest represents the request payload for creating a wallet
type CreateWalletRequest struct {
	Name string            `json:"name" binding:"required,max=100"`
	Kind models.WalletKind `json:"kind" binding:"omitempty,wallet_kind"`
}

// AddMemberRequest represents the request payload for adding a wallet member
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,max=255"`
}

// CreateWallet handles wallet creation
// @Summary     Create a wallet
// @Description Create a wallet owned by the authenticated user
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateWalletRequest true "Wallet details"
// @Success     201 {object} models.Wallet "Wallet created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /wallets [post]
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	if req.Kind == "" {
		req.Kind = models.WalletKindPersonal
	}

	wallet, err := h.walletService.CreateWallet(userID, req.Name, req.Kind)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, wallet.ID, services.AuditCreateWallet, "wallet", wallet.ID, c.ClientIP(),
		map[string]interface{}{"name": wallet.Name, "kind": wallet.Kind})

	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// GetUserWallets lists the caller's wallets
// @Summary     List wallets
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Wallet] "Paginated wallets"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /wallets [get]
func (h *WalletHandler) GetUserWallets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	result, err := h.walletService.GetUserWallets(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetWallet returns one wallet
// @Summary     Get a wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Wallet ID"
// @Success     200 {object} models.Wallet
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallets/{id} [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
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

	wallet, err := h.walletService.GetWalletByID(userID, walletID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// AddMember adds a user to a wallet
// @Summary     Add a wallet member
// @Description Only the wallet owner may add members. The wallet becomes shared.
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Wallet ID"
// @Param       request body AddMemberRequest true "Member to add"
// @Success     201 {object} models.WalletMember
// @Failure     403 {object} ErrorResponse "Not the wallet owner"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /wallets/{id}/members [post]
func (h *WalletHandler) AddMember(c *gin.Context) {
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

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	member, err := h.walletService.AddMember(userID, walletID, req.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, walletID, services.AuditAddWalletMember, "wallet_member", member.ID, c.ClientIP(),
		map[string]interface{}{"user_id": req.UserID})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// GetMembers lists a wallet's members
// @Summary     List wallet members
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Wallet ID"
// @Success     200 {array} models.WalletMember
// @Failure     403 {object} ErrorResponse "Not a wallet member"
// @Router      /wallets/{id}/members [get]
func (h *WalletHandler) GetMembers(c *gin.Context) {
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

	members, err := h.walletService.GetMembers(userID, walletID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}
