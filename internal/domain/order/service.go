// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an order does not exist for the requesting user
var ErrNotFound = errors.New("order: not found")

// Service provides read access to a user's orders
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// List returns all orders belonging to the user, newest first
func (s *Service) List(userID uint) ([]Order, error) {
	var orders []Order
	err := s.db.
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Get returns one of the user's orders by id
func (s *Service) Get(userID, orderID uint) (*Order, error) {
	var o Order
	err := s.db.
		Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &o, nil
}

// GetByGatewayOrderID returns one of the user's orders by its gateway order id
func (s *Service) GetByGatewayOrderID(userID uint, razorpayOrderID string) (*Order, error) {
	var o Order
	err := s.db.
		Preload("Items").
		Where("razorpay_order_id = ? AND user_id = ?", razorpayOrderID, userID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &o, nil
}
