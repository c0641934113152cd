// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

var (
	// ErrEmptyCart is returned when checkout is attempted on a cart with no
	// items; no order may be created in that case.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutInProgress is returned when a concurrent checkout for the
	// same user holds the lock.
	ErrCheckoutInProgress = errors.New("checkout: another checkout is in progress")
)

// checkoutLockTTL bounds how long a crashed request can block a user's
// checkout.
const checkoutLockTTL = 30 * time.Second

// Service converts a mutable cart into an immutable order with an open
// gateway transaction.
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	gateway     payment.Gateway
	cartService *cart.Service
	log         *logrus.Logger
}

// NewService creates a checkout service backed by the Razorpay gateway
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *Service {
	return NewServiceWithGateway(db, redisClient, cfg, payment.NewRazorpayClient(cfg), log)
}

// NewServiceWithGateway allows substituting the gateway implementation
func NewServiceWithGateway(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, gateway payment.Gateway, log *logrus.Logger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		gateway:     gateway,
		cartService: cart.NewService(db, cfg),
		log:         log,
	}
}

// Prefill carries contact details for the gateway's checkout widget
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Intent is the client-facing checkout payload: everything the gateway
// widget needs to collect the payment.
type Intent struct {
	OrderID     string  `json:"order_id"` // gateway order id
	Amount      int64   `json:"amount"`   // minor units
	Currency    string  `json:"currency"`
	Key         string  `json:"key"` // publishable key id
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
}

// CreateCheckout snapshots the user's cart into an order and opens a gateway
// transaction for its total. The cart is left untouched; it is cleared only
// on confirmed payment.
func (s *Service) CreateCheckout(ctx context.Context, userID uint) (*Intent, error) {
	userCart, err := s.cartService.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	if len(userCart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var owner user.User
	if err := s.db.First(&owner, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	totalAmount := userCart.TotalValue().Round(2)
	amountMinor := totalAmount.Mul(decimal.NewFromInt(100)).IntPart()
	currency := s.config.External.Razorpay.Currency

	unlock, err := s.acquireLock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Gateway first: if this fails, no local order must persist.
	receipt := "rcpt_" + uuid.New().String()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, amountMinor, currency, receipt)
	if err != nil {
		return nil, err
	}

	o := order.Order{
		UserID:          userID,
		TotalAmount:     totalAmount,
		Status:          order.StatusPending,
		RazorpayOrderID: &gatewayOrder.ID,
	}
	for _, item := range userCart.Items {
		productID := item.ProductID
		o.Items = append(o.Items, order.OrderItem{
			ProductID: &productID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			Price:     item.Product.Price, // price lock: future edits don't apply
		})
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&o).Error
	}); err != nil {
		s.compensateOrphanedGatewayOrder(userID, gatewayOrder.ID, totalAmount)
		return nil, fmt.Errorf("failed to persist order for gateway order %s: %w", gatewayOrder.ID, err)
	}

	return &Intent{
		OrderID:     gatewayOrder.ID,
		Amount:      amountMinor,
		Currency:    currency,
		Key:         s.config.External.Razorpay.KeyID,
		Name:        s.config.App.Name,
		Description: fmt.Sprintf("Order payment for %s", owner.GetDisplayName()),
		Prefill: Prefill{
			Name:  owner.GetFullName(),
			Email: owner.Email,
		},
	}, nil
}

// compensateOrphanedGatewayOrder records a minimal gateway_failed order so an
// out-of-band job can reconcile the remote order that now has no local
// counterpart. Failure to compensate is logged and otherwise swallowed; the
// caller already reports the original error.
func (s *Service) compensateOrphanedGatewayOrder(userID uint, gatewayOrderID string, totalAmount decimal.Decimal) {
	marker := order.Order{
		UserID:          userID,
		TotalAmount:     totalAmount,
		Status:          order.StatusGatewayFailed,
		RazorpayOrderID: &gatewayOrderID,
	}
	if err := s.db.Create(&marker).Error; err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":           userID,
			"razorpay_order_id": gatewayOrderID,
		}).Error("orphaned gateway order could not be recorded")
		return
	}
	s.log.WithFields(logrus.Fields{
		"order_id":          marker.ID,
		"razorpay_order_id": gatewayOrderID,
	}).Warn("gateway order recorded as gateway_failed for reconciliation")
}

// acquireLock takes a short per-user lock so double-submitted checkouts
// don't open two gateway orders. Redis being down degrades to no lock; the
// storage-level guarantees still hold.
func (s *Service) acquireLock(ctx context.Context, userID uint) (func(), error) {
	if s.redisClient == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("checkout_lock:%d", userID)
	ok, err := s.redisClient.SetNX(ctx, key, 1, checkoutLockTTL).Result()
	if err != nil {
		s.log.WithError(err).Warn("checkout lock unavailable, proceeding without it")
		return func() {}, nil
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	return func() {
		if err := s.redisClient.Del(context.Background(), key).Err(); err != nil {
			s.log.WithError(err).Warn("failed to release checkout lock")
		}
	}, nil
}
