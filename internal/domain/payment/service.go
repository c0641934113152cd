// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Service settles gateway payment callbacks: verify the signature, move the
// order to paid exactly once, clear the owner's cart.
type Service struct {
	db          *gorm.DB
	config      *config.Config
	gateway     Gateway
	cartService *cart.Service
	log         *logrus.Logger
}

// NewService creates a settlement service backed by the Razorpay gateway
func NewService(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *Service {
	return NewServiceWithGateway(db, cfg, NewRazorpayClient(cfg), log)
}

// NewServiceWithGateway allows substituting the gateway implementation
func NewServiceWithGateway(db *gorm.DB, cfg *config.Config, gateway Gateway, log *logrus.Logger) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		gateway:     gateway,
		cartService: cart.NewService(db, cfg),
		log:         log,
	}
}

// VerificationRequest is the gateway callback payload forwarded by the client
type VerificationRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// SettlementResult acknowledges a verified payment
type SettlementResult struct {
	OrderID           uint   `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	AlreadyPaid       bool   `json:"-"`
}

// VerifyAndSettle validates the callback and transitions the order to paid.
// The caller must own the order; re-verifying an already paid order is a
// success no-op. The order is left unpaid on any verification failure.
func (s *Service) VerifyAndSettle(ctx context.Context, userID uint, req *VerificationRequest) (*SettlementResult, error) {
	// Signature first: a forged callback must not learn whether the order
	// id exists.
	if err := s.gateway.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature); err != nil {
		return nil, err
	}

	var o order.Order
	err := s.db.Where("razorpay_order_id = ? AND user_id = ?", req.RazorpayOrderID, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if o.IsPaid {
		// Idempotent: the paid flag transitions once, re-verification has
		// no further side effects.
		return &SettlementResult{
			OrderID:           o.ID,
			RazorpayOrderID:   req.RazorpayOrderID,
			RazorpayPaymentID: req.RazorpayPaymentID,
			AlreadyPaid:       true,
		}, nil
	}

	if !o.CanSettle() {
		return nil, ErrOrderNotFound
	}

	if err := s.checkAmount(ctx, &o, req.RazorpayPaymentID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&order.Order{}).
			Where("id = ? AND is_paid = ?", o.ID, false).
			Updates(map[string]interface{}{
				"razorpay_payment_id": req.RazorpayPaymentID,
				"razorpay_signature":  req.RazorpaySignature,
				"is_paid":             true,
				"status":              order.StatusPaid,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to settle order: %w", err)
	}

	// Clear the order owner's cart, not an arbitrary caller's; ownership was
	// already established by the lookup above.
	if err := s.cartService.Clear(o.UserID); err != nil {
		// The payment is settled; a failed cart clear should not undo it.
		s.log.WithError(err).WithField("order_id", o.ID).Error("failed to clear cart after settlement")
	}

	s.log.WithFields(logrus.Fields{
		"order_id":            o.ID,
		"razorpay_order_id":   req.RazorpayOrderID,
		"razorpay_payment_id": req.RazorpayPaymentID,
	}).Info("payment settled")

	return &SettlementResult{
		OrderID:           o.ID,
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
	}, nil
}

// checkAmount reconciles the gateway-reported amount with the order's stored
// total before accepting the payment.
func (s *Service) checkAmount(ctx context.Context, o *order.Order, paymentID string) error {
	gatewayPayment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if gatewayPayment.Amount != o.AmountMinorUnits() {
		s.log.WithFields(logrus.Fields{
			"order_id":        o.ID,
			"expected_amount": o.AmountMinorUnits(),
			"reported_amount": gatewayPayment.Amount,
		}).Warn("payment amount mismatch")
		return ErrAmountMismatch
	}
	return nil
}
