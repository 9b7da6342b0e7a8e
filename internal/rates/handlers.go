package rates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for advisory exchange rates.
type Handler struct {
	service *Service
}

// NewHandler creates a new rate handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public rate routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/rates", h.ListRates)
	r.GET("/rates/:asset/:currency", h.GetRate)
}

// RegisterProtectedRoutes sets up admin-gated rate routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.PUT("/rates/:asset/:currency", h.SetRate)
}

// SetRequest is the rate payload.
type SetRequest struct {
	Rate     int64 `json:"rate" binding:"required"`
	Decimals int   `json:"decimals"`
	Active   bool  `json:"active"`
}

// ListRates handles GET /v1/rates?asset=
func (h *Handler) ListRates(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Query("asset"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": list, "count": len(list)})
}

// GetRate handles GET /v1/rates/:asset/:currency
func (h *Handler) GetRate(c *gin.Context) {
	rate, err := h.service.Get(c.Request.Context(), c.Param("asset"), c.Param("currency"))
	if err != nil {
		if errors.Is(err, ErrRateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Rate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate": rate})
}

// SetRate handles PUT /v1/rates/:asset/:currency
func (h *Handler) SetRate(c *gin.Context) {
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "rate is required"})
		return
	}

	err := h.service.Set(c.Request.Context(), c.GetString("authAccount"), Rate{
		Asset:    c.Param("asset"),
		Currency: c.Param("currency"),
		Rate:     req.Rate,
		Decimals: req.Decimals,
		Active:   req.Active,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrInvalidRate):
			status = http.StatusBadRequest
			code = "invalid_rate"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
