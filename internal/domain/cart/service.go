// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrProductNotFound is returned when the referenced product does not exist
	ErrProductNotFound = errors.New("cart: product not found")
	// ErrInvalidQuantity is returned when the requested quantity is below 1
	ErrInvalidQuantity = errors.New("cart: quantity must be a positive integer")
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddItemRequest represents an add to cart request
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// CartResponse is the cart view returned to clients: all items plus the
// computed total.
type CartResponse struct {
	ID         uint            `json:"id"`
	UserID     uint            `json:"user_id"`
	Items      []CartItem      `json:"items"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// GetOrCreateCart resolves the user's cart, creating it on first access.
// Concurrent first accesses are safe: the unique index on user_id makes the
// losing insert fall back to a fetch.
func (s *Service) GetOrCreateCart(userID uint) (*Cart, error) {
	var c Cart
	err := s.db.Preload("Items.Product.Brand").Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c = Cart{UserID: userID, Items: []CartItem{}}
	createErr := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&c).Error
	if createErr != nil {
		return nil, fmt.Errorf("failed to create cart: %w", createErr)
	}
	if c.ID == 0 {
		// Lost the race; another request created it first.
		if err := s.db.Preload("Items.Product.Brand").Where("user_id = ?", userID).First(&c).Error; err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
	}
	return &c, nil
}

// AddItem adds quantity of a product to the user's cart, merging into the
// existing row when one exists, and returns the updated cart view.
func (s *Service) AddItem(userID uint, req *AddItemRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var product catalog.Product
	if err := s.db.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	c, err := s.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	// Atomic merge: two concurrent adds for the same product cannot create
	// duplicate rows because of the (cart_id, product_id) unique index.
	item := CartItem{
		CartID:    c.ID,
		ProductID: product.ID,
		Quantity:  req.Quantity,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return s.GetCartView(userID)
}

// GetCartView returns the client-facing view of the user's cart
func (s *Service) GetCartView(userID uint) (*CartResponse, error) {
	c, err := s.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	return &CartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      c.Items,
		TotalValue: c.TotalValue(),
	}, nil
}

// Clear removes all items from the user's cart. Idempotent on an empty or
// not-yet-created cart.
func (s *Service) Clear(userID uint) error {
	c, err := s.GetOrCreateCart(userID)
	if err != nil {
		return err
	}
	if err := s.db.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
