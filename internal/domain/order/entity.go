// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks an order through payment settlement
type Status string

const (
	// StatusPending: order created, gateway order open, payment not confirmed
	StatusPending Status = "pending"
	// StatusPaid: signature-verified payment received; terminal
	StatusPaid Status = "paid"
	// StatusGatewayFailed: compensation marker for a gateway order whose local
	// persistence failed; reconciled out-of-band, never transitions to paid
	StatusGatewayFailed Status = "gateway_failed"
)

// Order is an immutable snapshot of a cart at checkout time. TotalAmount and
// the item prices are fixed at creation and never recomputed from live
// product prices.
type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	Status            Status          `gorm:"not null;size:20;default:'pending'" json:"status"`
	RazorpayOrderID   *string         `gorm:"size:100;uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID *string         `gorm:"size:100" json:"razorpay_payment_id"`
	RazorpaySignature *string         `gorm:"size:100" json:"razorpay_signature"`
	IsPaid            bool            `gorm:"not null;default:false" json:"is_paid"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem snapshots one cart line. Price is the product price at order
// creation time; ProductID is nullable so catalog deletions never destroy
// settled history.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"-"`
	ProductID *uint           `gorm:"index" json:"product_id"`
	Name      string          `gorm:"not null;size:100" json:"name"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// AmountMinorUnits returns the order total in the gateway's currency subunit
// (truncated, matching the gateway convention).
func (o *Order) AmountMinorUnits() int64 {
	return o.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()
}

// CanSettle reports whether verification may move the order to paid
func (o *Order) CanSettle() bool {
	return o.Status == StatusPending
}
