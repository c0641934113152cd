// internal/domain/payment/service_test.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

const testSecret = "test_secret"

// fakeGateway verifies signatures with a real HMAC over the test secret and
// reports a fixed payment amount.
type fakeGateway struct {
	paymentAmount int64
	fetchErr      error
}

func (f *fakeGateway) CreateOrder(_ context.Context, amountMinorUnits int64, currency, receipt string) (*GatewayOrder, error) {
	return &GatewayOrder{ID: "order_fake", Amount: amountMinorUnits, Currency: currency, Receipt: receipt}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	if signPayload(orderID, paymentID) != signature {
		return ErrSignatureMismatch
	}
	return nil
}

func (f *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*GatewayPayment, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &GatewayPayment{ID: paymentID, Amount: f.paymentAmount, Status: "captured"}, nil
}

func signPayload(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
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

// seedPendingOrder creates a user with a cart item and a pending order
// awaiting settlement.
func seedPendingOrder(t *testing.T, db *gorm.DB, gatewayOrderID string, total string) *order.Order {
	t.Helper()

	u := user.User{Email: gatewayOrderID + "@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(&u).Error)

	brand := catalog.Brand{Name: "Brand-" + gatewayOrderID}
	require.NoError(t, db.Create(&brand).Error)
	p := catalog.Product{
		Name: "Item", Price: decimal.RequireFromString(total),
		BrandID: brand.ID, Category: catalog.CategoryTopwear, Gender: catalog.GenderUnisex,
	}
	require.NoError(t, db.Create(&p).Error)

	cartSvc := cart.NewService(db, &config.Config{})
	_, err := cartSvc.AddItem(u.ID, &cart.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	o := order.Order{
		UserID:          u.ID,
		TotalAmount:     decimal.RequireFromString(total),
		Status:          order.StatusPending,
		RazorpayOrderID: &gatewayOrderID,
		Items: []order.OrderItem{
			{ProductID: &p.ID, Name: p.Name, Quantity: 1, Price: p.Price},
		},
	}
	require.NoError(t, db.Create(&o).Error)
	return &o
}

func settlementService(db *gorm.DB, amountMinor int64) *Service {
	return NewServiceWithGateway(db, &config.Config{}, &fakeGateway{paymentAmount: amountMinor}, testLogger())
}

func TestVerifyAndSettleHappyPath(t *testing.T) {
	db := setupTestDB(t)
	o := seedPendingOrder(t, db, "order_abc", "90.00")
	svc := settlementService(db, 9000)

	result, err := svc.VerifyAndSettle(context.Background(), o.UserID, &VerificationRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: signPayload("order_abc", "pay_123"),
	})
	require.NoError(t, err)
	require.Equal(t, o.ID, result.OrderID)
	require.False(t, result.AlreadyPaid)

	var settled order.Order
	require.NoError(t, db.First(&settled, o.ID).Error)
	require.True(t, settled.IsPaid)
	require.Equal(t, order.StatusPaid, settled.Status)
	require.NotNil(t, settled.RazorpayPaymentID)
	require.Equal(t, "pay_123", *settled.RazorpayPaymentID)

	// Settlement clears the owner's cart.
	view, err := cart.NewService(db, &config.Config{}).GetCartView(o.UserID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

func TestVerifyAndSettleForgedSignature(t *testing.T) {
	db := setupTestDB(t)
	o := seedPendingOrder(t, db, "order_abc", "90.00")
	svc := settlementService(db, 9000)

	_, err := svc.VerifyAndSettle(context.Background(), o.UserID, &VerificationRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: "deadbeef",
	})
	require.ErrorIs(t, err, ErrSignatureMismatch)

	var unsettled order.Order
	require.NoError(t, db.First(&unsettled, o.ID).Error)
	require.False(t, unsettled.IsPaid)
	require.Equal(t, order.StatusPending, unsettled.Status)

	// The cart survives a rejected verification.
	view, err := cart.NewService(db, &config.Config{}).GetCartView(o.UserID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
}

func TestVerifyAndSettleIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	o := seedPendingOrder(t, db, "order_abc", "90.00")
	svc := settlementService(db, 9000)

	req := &VerificationRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: signPayload("order_abc", "pay_123"),
	}

	first, err := svc.VerifyAndSettle(context.Background(), o.UserID, req)
	require.NoError(t, err)
	require.False(t, first.AlreadyPaid)

	second, err := svc.VerifyAndSettle(context.Background(), o.UserID, req)
	require.NoError(t, err)
	require.True(t, second.AlreadyPaid)
	require.Equal(t, first.OrderID, second.OrderID)

	var settled order.Order
	require.NoError(t, db.First(&settled, o.ID).Error)
	require.True(t, settled.IsPaid)
}

func TestVerifyAndSettleRequiresOwnership(t *testing.T) {
	db := setupTestDB(t)
	o := seedPendingOrder(t, db, "order_abc", "90.00")
	svc := settlementService(db, 9000)

	otherUser := o.UserID + 100
	_, err := svc.VerifyAndSettle(context.Background(), otherUser, &VerificationRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: signPayload("order_abc", "pay_123"),
	})
	require.ErrorIs(t, err, ErrOrderNotFound)

	var unsettled order.Order
	require.NoError(t, db.First(&unsettled, o.ID).Error)
	require.False(t, unsettled.IsPaid)
}

func TestVerifyAndSettleAmountMismatch(t *testing.T) {
	db := setupTestDB(t)
	o := seedPendingOrder(t, db, "order_abc", "90.00")
	svc := settlementService(db, 4500) // gateway reports half the total

	_, err := svc.VerifyAndSettle(context.Background(), o.UserID, &VerificationRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: signPayload("order_abc", "pay_123"),
	})
	require.ErrorIs(t, err, ErrAmountMismatch)

	var unsettled order.Order
	require.NoError(t, db.First(&unsettled, o.ID).Error)
	require.False(t, unsettled.IsPaid)
}

func TestVerifyAndSettleRejectsFailedOrders(t *testing.T) {
	db := setupTestDB(t)
	o := seedPendingOrder(t, db, "order_abc", "90.00")
	require.NoError(t, db.Model(o).Update("status", order.StatusGatewayFailed).Error)

	svc := settlementService(db, 9000)
	_, err := svc.VerifyAndSettle(context.Background(), o.UserID, &VerificationRequest{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: signPayload("order_abc", "pay_123"),
	})
	require.ErrorIs(t, err, ErrOrderNotFound)
}
