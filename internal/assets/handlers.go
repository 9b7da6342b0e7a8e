package assets

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the asset whitelist.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new asset handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes sets up public asset routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/assets", h.ListAssets)
}

// RegisterProtectedRoutes sets up admin-gated asset routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.PUT("/assets/:asset", h.SetSupported)
}

// SupportRequest toggles support for an asset.
type SupportRequest struct {
	Supported *bool `json:"supported" binding:"required"`
}

// ListAssets handles GET /v1/assets
func (h *Handler) ListAssets(c *gin.Context) {
	list, err := h.registry.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": list})
}

// SetSupported handles PUT /v1/assets/:asset
func (h *Handler) SetSupported(c *gin.Context) {
	var req SupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "supported is required"})
		return
	}

	err := h.registry.SetSupported(c.Request.Context(), c.GetString("authAccount"), c.Param("asset"), *req.Supported)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrUnauthorized):
			status = http.StatusForbidden
			code = "unauthorized"
		case errors.Is(err, ErrInvalidAsset):
			status = http.StatusBadRequest
			code = "invalid_asset"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
