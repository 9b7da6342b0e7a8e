package fees

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for fee configuration.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new fee handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up public fee routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/fees", h.ListConfigs)
	r.GET("/fees/:asset", h.GetConfig)
}

// RegisterProtectedRoutes sets up admin-gated fee routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.PUT("/fees/:asset", h.SetConfig)
}

// SetRequest is the fee schedule payload.
type SetRequest struct {
	BuyBps  int64 `json:"buyBps"`
	SellBps int64 `json:"sellBps"`
	MinFee  int64 `json:"minFee"`
	MaxFee  int64 `json:"maxFee"`
}

// ListConfigs handles GET /v1/fees
func (h *Handler) ListConfigs(c *gin.Context) {
	configs, err := h.engine.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fees": configs, "count": len(configs)})
}

// GetConfig handles GET /v1/fees/:asset
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.engine.Get(c.Request.Context(), c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "No fee config for asset"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee": cfg})
}

// SetConfig handles PUT /v1/fees/:asset
func (h *Handler) SetConfig(c *gin.Context) {
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	err := h.engine.SetConfig(c.Request.Context(), c.GetString("authAccount"), Config{
		Asset:   c.Param("asset"),
		BuyBps:  req.BuyBps,
		SellBps: req.SellBps,
		MinFee:  req.MinFee,
		MaxFee:  req.MaxFee,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrFeeTooHigh), errors.Is(err, ErrInvalidFee):
			status = http.StatusBadRequest
			code = "invalid_fee"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
