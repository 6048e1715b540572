package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobdam/service-billing/internal/domain"
)

// Success writes a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Created writes a 201 envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// NotFound writes a 404 envelope for an empty (non-error) lookup result.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": msg})
}

// BadRequest writes a 400 envelope.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// Error maps a domain failure to its HTTP status. Unknown errors become an
// opaque 500; internal detail stays in the logs.
func Error(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := httpStatus(code)

	msg := "internal server error"
	if code != domain.CodeInternal {
		var de *domain.Error
		if errors.As(err, &de) {
			msg = de.Message
		}
	}

	c.JSON(status, gin.H{"success": false, "error": msg, "code": string(code)})
}

func httpStatus(code domain.Code) int {
	switch code {
	case domain.CodeUserNotFound, domain.CodeSubscriptionNotFound:
		return http.StatusNotFound
	case domain.CodeDuplicateActiveSubscription:
		return http.StatusConflict
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeInvalidCoupon, domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeInvalidState:
		return http.StatusConflict
	case domain.CodeGatewayTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeGatewayError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
