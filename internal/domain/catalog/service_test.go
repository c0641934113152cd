// internal/domain/catalog/service_test.go
package catalog

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Brand{}, &Product{}))

	// The cascade policy reaches into these tables by name.
	require.NoError(t, db.Exec(`CREATE TABLE cart_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cart_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		price NUMERIC NOT NULL,
		created_at DATETIME
	)`).Error)

	return db
}

func newServiceForTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(db, &config.Config{}), db
}

func mustCreateProduct(t *testing.T, svc *Service, brandID uint, name, price string) *Product {
	t.Helper()
	p, err := svc.CreateProduct(&Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		BrandID:  brandID,
		Category: CategoryTopwear,
	})
	require.NoError(t, err)
	return p
}

func TestCreateAndRenameBrand(t *testing.T) {
	svc, _ := newServiceForTest(t)

	brand, err := svc.CreateBrand("Nike")
	require.NoError(t, err)
	require.NotZero(t, brand.ID)

	renamed, err := svc.RenameBrand(brand.ID, "Adidas")
	require.NoError(t, err)
	require.Equal(t, "Adidas", renamed.Name)

	_, err = svc.GetBrand(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newServiceForTest(t)
	brand, err := svc.CreateBrand("Puma")
	require.NoError(t, err)

	_, err = svc.CreateProduct(&Product{
		Name:     "Thing",
		Price:    decimal.NewFromInt(10),
		BrandID:  brand.ID,
		Category: "spaceships",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(&Product{
		Name:     "Thing",
		Price:    decimal.NewFromInt(10),
		BrandID:  999,
		Category: CategoryHats,
	})
	require.ErrorIs(t, err, ErrValidation)

	// Gender defaults when omitted.
	p, err := svc.CreateProduct(&Product{
		Name:     "Cap",
		Price:    decimal.NewFromInt(10),
		BrandID:  brand.ID,
		Category: CategoryHats,
	})
	require.NoError(t, err)
	require.Equal(t, GenderUnisex, p.Gender)
}

func TestListProductsPriceRange(t *testing.T) {
	svc, _ := newServiceForTest(t)
	brand, err := svc.CreateBrand("Generic")
	require.NoError(t, err)

	for _, price := range []string{"5.00", "20.00", "50.00", "100.00"} {
		mustCreateProduct(t, svc, brand.ID, "P"+price, price)
	}

	minPrice := decimal.RequireFromString("11")
	maxPrice := decimal.RequireFromString("50")
	products, err := svc.ListProducts(&ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
	require.NoError(t, err)

	require.Len(t, products, 2)
	prices := []string{products[0].Price.StringFixed(2), products[1].Price.StringFixed(2)}
	require.ElementsMatch(t, []string{"20.00", "50.00"}, prices)

	// A single bound does not filter.
	all, err := svc.ListProducts(&ProductFilter{MinPrice: &minPrice})
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestListProductsBrandFilterIsCaseInsensitive(t *testing.T) {
	svc, _ := newServiceForTest(t)
	nike, err := svc.CreateBrand("Nike")
	require.NoError(t, err)
	puma, err := svc.CreateBrand("Puma")
	require.NoError(t, err)

	mustCreateProduct(t, svc, nike.ID, "Shirt", "20.00")
	mustCreateProduct(t, svc, puma.ID, "Shoes", "50.00")

	products, err := svc.ListProducts(&ProductFilter{Brand: "nIkE"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "Shirt", products[0].Name)
}

func TestListProductsOrdering(t *testing.T) {
	svc, _ := newServiceForTest(t)
	brand, err := svc.CreateBrand("Generic")
	require.NoError(t, err)

	mustCreateProduct(t, svc, brand.ID, "Mid", "20.00")
	mustCreateProduct(t, svc, brand.ID, "Cheap", "5.00")
	mustCreateProduct(t, svc, brand.ID, "Pricey", "100.00")

	asc, err := svc.ListProducts(&ProductFilter{Ordering: "price"})
	require.NoError(t, err)
	require.Equal(t, []string{"Cheap", "Mid", "Pricey"}, []string{asc[0].Name, asc[1].Name, asc[2].Name})

	desc, err := svc.ListProducts(&ProductFilter{Ordering: "-price"})
	require.NoError(t, err)
	require.Equal(t, "Pricey", desc[0].Name)
}

func TestDeleteBrandCascades(t *testing.T) {
	svc, db := newServiceForTest(t)
	brand, err := svc.CreateBrand("Doomed")
	require.NoError(t, err)
	keeper, err := svc.CreateBrand("Keeper")
	require.NoError(t, err)

	doomed := mustCreateProduct(t, svc, brand.ID, "Gone", "20.00")
	kept := mustCreateProduct(t, svc, keeper.ID, "Stays", "30.00")

	require.NoError(t, db.Exec(
		"INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (1, ?, 2), (1, ?, 1)",
		doomed.ID, kept.ID).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO order_items (order_id, product_id, name, quantity, price) VALUES (1, ?, 'Gone', 1, 20.00)",
		doomed.ID).Error)

	require.NoError(t, svc.DeleteBrand(brand.ID))

	_, err = svc.GetProduct(doomed.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetProduct(kept.ID)
	require.NoError(t, err)

	// Cart rows for the deleted products are gone, others survive.
	var cartCount int64
	require.NoError(t, db.Table("cart_items").Count(&cartCount).Error)
	require.Equal(t, int64(1), cartCount)

	// Order history keeps the snapshot, just without the product ref.
	var productID *uint
	require.NoError(t, db.Table("order_items").Select("product_id").Where("order_id = 1").Scan(&productID).Error)
	require.Nil(t, productID)
}

func TestDeleteProductDetachesReferences(t *testing.T) {
	svc, db := newServiceForTest(t)
	brand, err := svc.CreateBrand("Generic")
	require.NoError(t, err)
	p := mustCreateProduct(t, svc, brand.ID, "Gadget", "99.00")

	require.NoError(t, db.Exec(
		"INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (7, ?, 3)", p.ID).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO order_items (order_id, product_id, name, quantity, price) VALUES (7, ?, 'Gadget', 3, 99.00)",
		p.ID).Error)

	require.NoError(t, svc.DeleteProduct(p.ID))

	var cartCount int64
	require.NoError(t, db.Table("cart_items").Count(&cartCount).Error)
	require.Zero(t, cartCount)

	var orderCount int64
	require.NoError(t, db.Table("order_items").Where("product_id IS NULL").Count(&orderCount).Error)
	require.Equal(t, int64(1), orderCount)
}
