// internal/domain/catalog/service.go
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a brand or product does not exist
	ErrNotFound = errors.New("catalog: not found")
	// ErrValidation is returned for malformed catalog input
	ErrValidation = errors.New("catalog: validation failed")
)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductFilter narrows down ListProducts results. MinPrice and MaxPrice
// only apply when both are set, matching the public API contract.
type ProductFilter struct {
	Gender   string
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Ordering string // "price" or "-price"
}

// ListBrands returns all brands
func (s *Service) ListBrands() ([]Brand, error) {
	var brands []Brand
	if err := s.db.Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

// CreateBrand creates a brand with a unique name
func (s *Service) CreateBrand(name string) (*Brand, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	brand := Brand{Name: name}
	if err := s.db.Create(&brand).Error; err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return &brand, nil
}

// GetBrand retrieves a brand by id
func (s *Service) GetBrand(id uint) (*Brand, error) {
	var brand Brand
	if err := s.db.First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return &brand, nil
}

// RenameBrand updates a brand's name, the only mutable brand field
func (s *Service) RenameBrand(id uint, name string) (*Brand, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	brand, err := s.GetBrand(id)
	if err != nil {
		return nil, err
	}
	brand.Name = name
	if err := s.db.Save(brand).Error; err != nil {
		return nil, fmt.Errorf("failed to rename brand: %w", err)
	}
	return brand, nil
}

// DeleteBrand removes a brand and cascades to its products
func (s *Service) DeleteBrand(id uint) error {
	brand, err := s.GetBrand(id)
	if err != nil {
		return err
	}
	// Cascade policy: products go with the brand, cart items go with their
	// product, order items keep their snapshot and only lose the product ref.
	// Done explicitly in one transaction rather than relying on FK cascades.
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := cascadeProductDelete(tx, tx.Model(&Product{}).Select("id").Where("brand_id = ?", brand.ID)); err != nil {
			return err
		}
		if err := tx.Where("brand_id = ?", brand.ID).Delete(&Product{}).Error; err != nil {
			return fmt.Errorf("failed to delete brand products: %w", err)
		}
		if err := tx.Delete(brand).Error; err != nil {
			return fmt.Errorf("failed to delete brand: %w", err)
		}
		return nil
	})
}

// cascadeProductDelete applies the product cascade policy for every product id
// matched by the given subquery. The cart and order tables are addressed by
// name to keep the catalog package free of upward imports.
func cascadeProductDelete(tx *gorm.DB, productIDs *gorm.DB) error {
	if err := tx.Exec("DELETE FROM cart_items WHERE product_id IN (?)", productIDs).Error; err != nil {
		return fmt.Errorf("failed to cascade delete cart items: %w", err)
	}
	if err := tx.Exec("UPDATE order_items SET product_id = NULL WHERE product_id IN (?)", productIDs).Error; err != nil {
		return fmt.Errorf("failed to detach order items: %w", err)
	}
	return nil
}

// ListProducts returns products matching the filter
func (s *Service) ListProducts(filter *ProductFilter) ([]Product, error) {
	query := s.db.Preload("Brand").Joins("JOIN brands ON brands.id = products.brand_id")

	if filter != nil {
		if filter.Gender != "" {
			query = query.Where("products.gender = ?", filter.Gender)
		}
		if filter.Category != "" {
			query = query.Where("products.category = ?", filter.Category)
		}
		if filter.Brand != "" {
			query = query.Where("LOWER(brands.name) = LOWER(?)", filter.Brand)
		}
		if filter.MinPrice != nil && filter.MaxPrice != nil {
			query = query.Where("products.price >= ? AND products.price <= ?",
				filter.MinPrice, filter.MaxPrice)
		}
		switch filter.Ordering {
		case "price":
			query = query.Order("products.price ASC")
		case "-price":
			query = query.Order("products.price DESC")
		}
	}

	var products []Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct creates a product under an existing brand
func (s *Service) CreateProduct(p *Product) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetBrand(p.BrandID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: brand %d does not exist", ErrValidation, p.BrandID)
		}
		return nil, err
	}
	if err := s.db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.GetProduct(p.ID)
}

// GetProduct retrieves a product by id
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	if err := s.db.Preload("Brand").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// UpdateProduct replaces the mutable fields of a product
func (s *Service) UpdateProduct(id uint, updated *Product) (*Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	product.Name = updated.Name
	product.Description = updated.Description
	product.Price = updated.Price
	product.Category = updated.Category
	product.Gender = updated.Gender
	if updated.BrandID != 0 {
		product.BrandID = updated.BrandID
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return s.GetProduct(id)
}

// DeleteProduct removes a product
func (s *Service) DeleteProduct(id uint) error {
	product, err := s.GetProduct(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := cascadeProductDelete(tx, tx.Model(&Product{}).Select("id").Where("id = ?", product.ID)); err != nil {
			return err
		}
		if err := tx.Delete(product).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}
