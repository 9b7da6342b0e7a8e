package policy

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for policy settings.
type Handler struct {
	service *Service
}

// NewHandler creates a new policy handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up admin-gated policy routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/policy", h.ListSettings)
	r.PUT("/policy/:key", h.SetSetting)
	r.PUT("/policy-pause", h.SetPaused)
}

// SetRequest is the raw setting payload.
type SetRequest struct {
	Value string `json:"value" binding:"required"`
}

// PauseRequest toggles the global pause.
type PauseRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// ListSettings handles GET /v1/policy
func (h *Handler) ListSettings(c *gin.Context) {
	all, err := h.service.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": all})
}

// SetSetting handles PUT /v1/policy/:key
func (h *Handler) SetSetting(c *gin.Context) {
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "value is required"})
		return
	}

	err := h.service.Set(c.Request.Context(), c.GetString("authAccount"), c.Param("key"), req.Value)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// SetPaused handles PUT /v1/policy-pause
func (h *Handler) SetPaused(c *gin.Context) {
	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "paused is required"})
		return
	}

	err := h.service.SetPaused(c.Request.Context(), c.GetString("authAccount"), *req.Paused)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *req.Paused})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
		code = "unauthorized"
	case errors.Is(err, ErrInvalidValue):
		status = http.StatusBadRequest
		code = "invalid_value"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
