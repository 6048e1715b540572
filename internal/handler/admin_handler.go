package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jobdam/service-billing/internal/application"
	"github.com/jobdam/service-billing/internal/domain/user"
	"github.com/jobdam/service-billing/internal/middleware"
	"github.com/jobdam/service-billing/internal/response"
)

// AdminHandler handles admin-only subscription endpoints.
type AdminHandler struct {
	service *application.BillingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *application.BillingService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtSecret string, users user.Directory) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtSecret, users), middleware.RequireRole(user.RoleAdmin))
	{
		admin.GET("/subscriptions", h.ListSubscriptions)
		admin.GET("/subscriptions/stats", h.GetStats)
	}
}

// ListSubscriptions handles GET /api/v1/admin/subscriptions
func (h *AdminHandler) ListSubscriptions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	subs, total, err := h.service.ListSubscriptions(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"subscriptions": subs,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

// GetStats handles GET /api/v1/admin/subscriptions/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
