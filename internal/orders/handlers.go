package orders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Olisehgenesis/lait/internal/assets"
	"github.com/Olisehgenesis/lait/internal/bank"
	"github.com/Olisehgenesis/lait/internal/limits"
)

// Handler provides HTTP endpoints for the order ledger.
type Handler struct {
	service *Service
}

// NewHandler creates a new order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public order routes. Expiry is included here:
// the time condition holds for any caller, so it needs no identity.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/orders", h.ListPending)
	r.GET("/orders/:id", h.Get)
	r.GET("/accounts/:address/orders", h.ListByAccount)
	r.GET("/escrow", h.EscrowBalances)
	r.POST("/orders/:id/expire", h.Expire)
}

// RegisterProtectedRoutes sets up order routes that require a caller
// identity. Privilege checks happen in the service.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/orders", h.Create)
	r.POST("/orders/:id/approve", h.Approve)
	r.POST("/orders/:id/fill", h.Fill)
	r.POST("/orders/:id/refund", h.Refund)
	r.PUT("/orders/:id/metadata", h.UpdateMetadata)
	r.DELETE("/orders/:id", h.Delete)
}

// Create handles POST /v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	order, err := h.service.Create(c.Request.Context(), c.GetString("authAccount"), req)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// Get handles GET /v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type fillRequest struct {
	Notes string `json:"notes"`
}

// Approve handles POST /v1/orders/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	order, err := h.service.Approve(c.Request.Context(), c.GetString("authAccount"), c.Param("id"))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Fill handles POST /v1/orders/:id/fill
func (h *Handler) Fill(c *gin.Context) {
	var req fillRequest
	_ = c.ShouldBindJSON(&req) // notes are optional

	order, err := h.service.Fill(c.Request.Context(), c.GetString("authAccount"), c.Param("id"), req.Notes)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// Refund handles POST /v1/orders/:id/refund
func (h *Handler) Refund(c *gin.Context) {
	var req refundRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.service.Refund(c.Request.Context(), c.GetString("authAccount"), c.Param("id"), req.Reason)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Expire handles POST /v1/orders/:id/expire
func (h *Handler) Expire(c *gin.Context) {
	caller := c.GetString("authAccount")
	if caller == "" {
		caller = "anonymous"
	}
	order, err := h.service.Expire(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type metadataRequest struct {
	Metadata string `json:"metadata" binding:"required"`
}

// UpdateMetadata handles PUT /v1/orders/:id/metadata
func (h *Handler) UpdateMetadata(c *gin.Context) {
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	order, err := h.service.UpdateMetadata(c.Request.Context(), c.GetString("authAccount"), c.Param("id"), req.Metadata)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Delete handles DELETE /v1/orders/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.GetString("authAccount"), c.Param("id")); err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListByAccount handles GET /v1/accounts/:address/orders
func (h *Handler) ListByAccount(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.service.ListByAccount(c.Request.Context(), c.Param("address"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

// ListPending handles GET /v1/orders
func (h *Handler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.service.ListPending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

// EscrowBalances handles GET /v1/escrow
func (h *Handler) EscrowBalances(c *gin.Context) {
	balances, err := h.service.EscrowBalances(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow": balances})
}

func respondOrderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrOrderNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
		code = "unauthorized"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMetadataTooBig),
		errors.Is(err, assets.ErrUnsupportedAsset):
		status = http.StatusBadRequest
		code = "invalid_request"
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrTooEarly),
		errors.Is(err, ErrMetadataEdited), errors.Is(err, ErrEscrowUndeleted):
		status = http.StatusConflict
		code = "invalid_state"
	case errors.Is(err, ErrPaused):
		status = http.StatusServiceUnavailable
		code = "paused"
	case errors.Is(err, limits.ErrLimitExceeded):
		status = http.StatusTooManyRequests
		code = "limit_exceeded"
	case errors.Is(err, bank.ErrTransferFailed):
		status = http.StatusBadGateway
		code = "transfer_failed"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
