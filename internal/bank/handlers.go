package bank

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the in-memory bank over HTTP in demo mode, so a local
// stack can fund accounts and grant custody-pull approvals without an
// external settlement system.
type Handler struct {
	bank *MemoryBank
}

// NewHandler creates a demo bank handler.
func NewHandler(bank *MemoryBank) *Handler {
	return &Handler{bank: bank}
}

// RegisterRoutes sets up demo bank routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/bank/:account/:asset", h.GetBalance)
	r.POST("/bank/credit", h.Credit)
	r.POST("/bank/approve", h.Approve)
}

// FundRequest credits or approves balance for an account.
type FundRequest struct {
	Account string `json:"account" binding:"required"`
	Asset   string `json:"asset" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
}

// GetBalance handles GET /v1/bank/:account/:asset
func (h *Handler) GetBalance(c *gin.Context) {
	account := c.Param("account")
	asset := c.Param("asset")
	c.JSON(http.StatusOK, gin.H{
		"account":   account,
		"asset":     asset,
		"balance":   h.bank.BalanceOf(account, asset),
		"allowance": h.bank.AllowanceOf(account, asset),
	})
}

// Credit handles POST /v1/bank/credit (demo faucet)
func (h *Handler) Credit(c *gin.Context) {
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "account, asset and positive amount are required"})
		return
	}
	h.bank.Credit(req.Account, req.Asset, req.Amount)
	c.JSON(http.StatusOK, gin.H{"balance": h.bank.BalanceOf(req.Account, req.Asset)})
}

// Approve handles POST /v1/bank/approve
func (h *Handler) Approve(c *gin.Context) {
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "account, asset and amount are required"})
		return
	}
	h.bank.Approve(req.Account, req.Asset, req.Amount)
	c.JSON(http.StatusOK, gin.H{"allowance": h.bank.AllowanceOf(req.Account, req.Asset)})
}
