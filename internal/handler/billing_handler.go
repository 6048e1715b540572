package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobdam/service-billing/internal/application"
	"github.com/jobdam/service-billing/internal/domain/user"
	"github.com/jobdam/service-billing/internal/middleware"
	"github.com/jobdam/service-billing/internal/response"
)

// BillingHandler handles HTTP requests for subscriptions and payments.
type BillingHandler struct {
	service *application.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(service *application.BillingService) *BillingHandler {
	return &BillingHandler{service: service}
}

// RegisterRoutes registers billing routes on the given router group.
// The coupon check is public; everything else requires authentication.
func (h *BillingHandler) RegisterRoutes(r *gin.RouterGroup, jwtSecret string, users user.Directory) {
	r.POST("/academy/check", h.CheckAcademyCoupon)

	authed := r.Group("")
	authed.Use(middleware.AuthMiddleware(jwtSecret, users))
	{
		authed.POST("/payments/kakao/ready", h.ReadyPayment)
		authed.POST("/payments/kakao/approve", h.ApprovePayment)
		authed.GET("/subscriptions/me", h.GetCurrentSubscription)
		authed.POST("/subscriptions/:id/cancel", h.CancelSubscription)
		authed.POST("/academy/subscribe", h.SubscribeAcademy)
	}
}

// CheckAcademyCoupon handles POST /api/v1/academy/check
func (h *BillingHandler) CheckAcademyCoupon(c *gin.Context) {
	var req struct {
		CouponCode string `json:"couponCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, h.service.CheckEligibility(req.CouponCode))
}

// ReadyPayment handles POST /api/v1/payments/kakao/ready
func (h *BillingHandler) ReadyPayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.BeginPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.BeginPaidSubscription(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// ApprovePayment handles POST /api/v1/payments/kakao/approve
func (h *BillingHandler) ApprovePayment(c *gin.Context) {
	var req application.ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.ConfirmSubscription(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GetCurrentSubscription handles GET /api/v1/subscriptions/me
func (h *BillingHandler) GetCurrentSubscription(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dto, err := h.service.GetCurrentSubscription(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if dto == nil {
		response.NotFound(c, "no active subscription")
		return
	}

	response.Success(c, dto)
}

// CancelSubscription handles POST /api/v1/subscriptions/:id/cancel
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid subscription ID")
		return
	}

	dto, err := h.service.CancelSubscription(c.Request.Context(), subID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// SubscribeAcademy handles POST /api/v1/academy/subscribe
func (h *BillingHandler) SubscribeAcademy(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		CouponCode string `json:"couponCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateFreeSubscription(c.Request.Context(), userID, req.CouponCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}
