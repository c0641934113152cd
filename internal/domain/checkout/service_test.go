// internal/domain/checkout/service_test.go
package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// fakeGateway satisfies payment.Gateway without network access
type fakeGateway struct {
	created   []int64
	failOrder bool
}

func (f *fakeGateway) CreateOrder(_ context.Context, amountMinorUnits int64, currency, receipt string) (*payment.GatewayOrder, error) {
	if f.failOrder {
		return nil, &payment.GatewayError{StatusCode: 502, Message: "gateway unavailable"}
	}
	f.created = append(f.created, amountMinorUnits)
	return &payment.GatewayOrder{
		ID:       fmt.Sprintf("order_fake%d", len(f.created)),
		Amount:   amountMinorUnits,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	return nil
}

func (f *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*payment.GatewayPayment, error) {
	return &payment.GatewayPayment{ID: paymentID}, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&user.User{},
		&catalog.Brand{},
		&catalog.Product{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
	)
	require.NoError(t, err)

	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "Storefront"
	cfg.External.Razorpay.KeyID = "rzp_test_key"
	cfg.External.Razorpay.Currency = "INR"
	return cfg
}

func seedUser(t *testing.T, db *gorm.DB) *user.User {
	t.Helper()
	u := user.User{Email: "buyer@example.com", Password: "x", FirstName: "Pat", LastName: "Doe", IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedCart(t *testing.T, db *gorm.DB, userID uint, lines map[string]struct {
	Price string
	Qty   int
}) {
	t.Helper()

	brand := catalog.Brand{Name: "Brand"}
	require.NoError(t, db.Create(&brand).Error)

	cartSvc := cart.NewService(db, &config.Config{})
	for name, line := range lines {
		p := catalog.Product{
			Name:     name,
			Price:    decimal.RequireFromString(line.Price),
			BrandID:  brand.ID,
			Category: catalog.CategoryTopwear,
			Gender:   catalog.GenderUnisex,
		}
		require.NoError(t, db.Create(&p).Error)
		_, err := cartSvc.AddItem(userID, &cart.AddItemRequest{ProductID: p.ID, Quantity: line.Qty})
		require.NoError(t, err)
	}
}

func TestCreateCheckoutEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	u := seedUser(t, db)
	gw := &fakeGateway{}
	svc := NewServiceWithGateway(db, nil, testConfig(), gw, testLogger())

	_, err := svc.CreateCheckout(context.Background(), u.ID)
	require.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	require.NoError(t, db.Model(&order.Order{}).Count(&count).Error)
	require.Zero(t, count, "no order may exist after a refused checkout")
	require.Empty(t, gw.created, "the gateway must not be called for an empty cart")
}

func TestCreateCheckoutTotals(t *testing.T) {
	db := setupTestDB(t)
	u := seedUser(t, db)
	seedCart(t, db, u.ID, map[string]struct {
		Price string
		Qty   int
	}{
		"Shirt": {Price: "20.00", Qty: 2},
		"Shoes": {Price: "50.00", Qty: 1},
	})

	gw := &fakeGateway{}
	svc := NewServiceWithGateway(db, nil, testConfig(), gw, testLogger())

	intent, err := svc.CreateCheckout(context.Background(), u.ID)
	require.NoError(t, err)

	require.Equal(t, int64(9000), intent.Amount)
	require.Equal(t, "INR", intent.Currency)
	require.Equal(t, "rzp_test_key", intent.Key)
	require.Equal(t, "Pat Doe", intent.Prefill.Name)
	require.Equal(t, "buyer@example.com", intent.Prefill.Email)

	var o order.Order
	require.NoError(t, db.Preload("Items").First(&o).Error)
	require.True(t, o.TotalAmount.Equal(decimal.RequireFromString("90.00")))
	require.Equal(t, order.StatusPending, o.Status)
	require.False(t, o.IsPaid)
	require.NotNil(t, o.RazorpayOrderID)
	require.Equal(t, intent.OrderID, *o.RazorpayOrderID)
	require.Len(t, o.Items, 2)

	// The cart stays untouched until the payment is confirmed.
	cartView, err := cart.NewService(db, &config.Config{}).GetCartView(u.ID)
	require.NoError(t, err)
	require.Len(t, cartView.Items, 2)
}

func TestCreateCheckoutSnapshotsPrices(t *testing.T) {
	db := setupTestDB(t)
	u := seedUser(t, db)
	seedCart(t, db, u.ID, map[string]struct {
		Price string
		Qty   int
	}{
		"Shirt": {Price: "20.00", Qty: 1},
	})

	gw := &fakeGateway{}
	svc := NewServiceWithGateway(db, nil, testConfig(), gw, testLogger())

	_, err := svc.CreateCheckout(context.Background(), u.ID)
	require.NoError(t, err)

	// Reprice the product after checkout.
	require.NoError(t, db.Model(&catalog.Product{}).Where("name = ?", "Shirt").
		Update("price", decimal.RequireFromString("999.99")).Error)

	var o order.Order
	require.NoError(t, db.Preload("Items").First(&o).Error)
	require.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("20.00")),
		"order items must keep the price at checkout time")
	require.True(t, o.TotalAmount.Equal(decimal.RequireFromString("20.00")))
}

func TestCreateCheckoutGatewayFailureLeavesNoState(t *testing.T) {
	db := setupTestDB(t)
	u := seedUser(t, db)
	seedCart(t, db, u.ID, map[string]struct {
		Price string
		Qty   int
	}{
		"Shirt": {Price: "20.00", Qty: 1},
	})

	gw := &fakeGateway{failOrder: true}
	svc := NewServiceWithGateway(db, nil, testConfig(), gw, testLogger())

	_, err := svc.CreateCheckout(context.Background(), u.ID)
	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, 502, gwErr.StatusCode)

	var count int64
	require.NoError(t, db.Model(&order.Order{}).Count(&count).Error)
	require.Zero(t, count, "a failed gateway call must not persist an order")
}

func TestCreateCheckoutCompensatesPersistenceFailure(t *testing.T) {
	db := setupTestDB(t)
	u := seedUser(t, db)
	seedCart(t, db, u.ID, map[string]struct {
		Price string
		Qty   int
	}{
		"Shirt": {Price: "20.00", Qty: 1},
	})

	// Force the order insert to fail after the gateway call succeeded.
	require.NoError(t, db.Migrator().DropTable(&order.OrderItem{}))

	gw := &fakeGateway{}
	svc := NewServiceWithGateway(db, nil, testConfig(), gw, testLogger())

	_, err := svc.CreateCheckout(context.Background(), u.ID)
	require.Error(t, err)
	require.Len(t, gw.created, 1, "the remote order was opened")

	// A reconciliation marker must exist for the orphaned gateway order.
	var marker order.Order
	require.NoError(t, db.First(&marker).Error)
	require.Equal(t, order.StatusGatewayFailed, marker.Status)
	require.False(t, marker.IsPaid)
	require.NotNil(t, marker.RazorpayOrderID)
}
