// internal/domain/catalog/entity.go
package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the fixed product category set
type Category string

const (
	CategoryTopwear     Category = "topwear"
	CategoryBottomwear  Category = "bottomwear"
	CategoryHats        Category = "hats"
	CategoryFootwear    Category = "footwear"
	CategoryAccessories Category = "accessories"
	CategoryGadgets     Category = "gadgets"
)

// Gender is the audience a product is targeted at
type Gender string

const (
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderKids   Gender = "Kids"
	GenderUnisex Gender = "Unisex"
)

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryTopwear, CategoryBottomwear, CategoryHats,
		CategoryFootwear, CategoryAccessories, CategoryGadgets:
		return true
	}
	return false
}

// IsValid reports whether g is a known gender
func (g Gender) IsValid() bool {
	switch g {
	case GenderMen, GenderWomen, GenderKids, GenderUnisex:
		return true
	}
	return false
}

// Brand represents a product brand
type Brand struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Deleting a brand removes its products as well.
	Products []Product `gorm:"foreignKey:BrandID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"products,omitempty"`
}

// Product represents a catalog product. Price is the live price; orders
// snapshot it at checkout time and never read it back.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:100" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	BrandID     uint            `gorm:"not null;index" json:"brand_id"`
	Category    Category        `gorm:"not null;size:50" json:"category"`
	Gender      Gender          `gorm:"size:10;not null;default:'Unisex'" json:"gender"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Brand Brand `gorm:"foreignKey:BrandID" json:"brand"`
}

// TableName overrides
func (Brand) TableName() string   { return "brands" }
func (Product) TableName() string { return "products" }

// Validate checks the product fields before create/update
func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.Category)
	}
	if p.Gender == "" {
		p.Gender = GenderUnisex
	}
	if !p.Gender.IsValid() {
		return fmt.Errorf("%w: unknown gender %q", ErrValidation, p.Gender)
	}
	return nil
}
