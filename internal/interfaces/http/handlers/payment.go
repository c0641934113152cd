// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// PaymentHandler handles checkout and payment verification endpoints
type PaymentHandler struct {
	checkoutService *checkout.Service
	paymentService  *payment.Service
	config          *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkout.NewService(db, redisClient, cfg, log),
		paymentService:  payment.NewService(db, cfg, log),
		config:          cfg,
	}
}

// CreatePayment handles POST /payment-create. It snapshots the caller's cart
// into an order and returns the checkout intent for the gateway widget.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	intent, err := h.checkoutService.CreateCheckout(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cart is empty",
			})
			return
		}
		if errors.Is(err, checkout.ErrCheckoutInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "A checkout is already in progress",
			})
			return
		}
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Payment gateway error",
				"details": gwErr.Message,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create checkout",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout created successfully",
		"data":    intent,
	})
}

// VerifyPayment handles POST /payment-verify. On a valid signature the order
// is marked paid and the caller's cart is cleared.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	var req payment.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.paymentService.VerifyAndSettle(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Payment signature verification failed",
			})
			return
		}
		if errors.Is(err, payment.ErrAmountMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Payment amount does not match the order",
			})
			return
		}
		if errors.Is(err, payment.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Payment gateway error",
				"details": gwErr.Message,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to verify payment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "Payment verified successfully",
		"data":   result,
	})
}
