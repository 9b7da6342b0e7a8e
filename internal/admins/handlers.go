package admins

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for admin management.
// All mutating routes resolve the caller from the auth middleware's
// "authAccount" context key; the registry enforces owner-only rules.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new admin handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes sets up admin routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/admins", h.ListAdmins)
	r.GET("/admins/:address", h.GetAdmin)
	r.POST("/admins", h.AddAdmin)
	r.DELETE("/admins/:address", h.RemoveAdmin)
	r.PUT("/admins/:address", h.UpdateAdmin)
	r.PUT("/admins/:address/capability", h.SetCapability)
	r.PUT("/admins/:address/status", h.SetStatus)
	r.PUT("/admins/capability-class", h.SetClassEnabled)
}

// AddRequest contains the parameters for registering an admin.
type AddRequest struct {
	Address      string `json:"address" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	CanSettle    bool   `json:"canSettle"`
	CanConfigure bool   `json:"canConfigure"`
}

// UpdateRequest contains the parameters for updating an admin.
type UpdateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CapabilityRequest toggles a per-admin capability flag.
type CapabilityRequest struct {
	Capability string `json:"capability" binding:"required"`
	Enabled    *bool  `json:"enabled" binding:"required"`
}

// StatusRequest toggles an admin's active flag.
type StatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ListAdmins handles GET /v1/admins
func (h *Handler) ListAdmins(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	admins, err := h.registry.List(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins, "count": len(admins)})
}

// GetAdmin handles GET /v1/admins/:address
func (h *Handler) GetAdmin(c *gin.Context) {
	admin, err := h.registry.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Admin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

// AddAdmin handles POST /v1/admins
func (h *Handler) AddAdmin(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "address and name are required"})
		return
	}

	var caps []Capability
	if req.CanSettle {
		caps = append(caps, CapSettle)
	}
	if req.CanConfigure {
		caps = append(caps, CapConfigure)
	}

	admin, err := h.registry.Add(c.Request.Context(), c.GetString("authAccount"),
		req.Address, req.Name, req.Description, caps)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": admin})
}

// RemoveAdmin handles DELETE /v1/admins/:address
func (h *Handler) RemoveAdmin(c *gin.Context) {
	err := h.registry.Remove(c.Request.Context(), c.GetString("authAccount"), c.Param("address"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// UpdateAdmin handles PUT /v1/admins/:address
func (h *Handler) UpdateAdmin(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name is required"})
		return
	}

	admin, err := h.registry.Update(c.Request.Context(), c.GetString("authAccount"),
		c.Param("address"), req.Name, req.Description)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

// SetCapability handles PUT /v1/admins/:address/capability
func (h *Handler) SetCapability(c *gin.Context) {
	var req CapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "capability and enabled are required"})
		return
	}

	err := h.registry.SetCapability(c.Request.Context(), c.GetString("authAccount"),
		c.Param("address"), Capability(req.Capability), *req.Enabled)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// SetStatus handles PUT /v1/admins/:address/status
func (h *Handler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "active is required"})
		return
	}

	err := h.registry.SetStatus(c.Request.Context(), c.GetString("authAccount"),
		c.Param("address"), *req.Active)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// SetClassEnabled handles PUT /v1/admins/capability-class
func (h *Handler) SetClassEnabled(c *gin.Context) {
	var req CapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "capability and enabled are required"})
		return
	}

	err := h.registry.SetClassEnabled(c.Request.Context(), c.GetString("authAccount"),
		Capability(req.Capability), *req.Enabled)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, ErrAdminNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
		code = "unauthorized"
	case errors.Is(err, ErrAdminExists):
		status = http.StatusConflict
		code = "already_exists"
	case errors.Is(err, ErrOwnerImmutable):
		status = http.StatusConflict
		code = "owner_immutable"
	case errors.Is(err, ErrInvalidName):
		status = http.StatusBadRequest
		code = "invalid_name"
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
