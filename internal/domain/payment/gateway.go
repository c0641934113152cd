// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSignatureMismatch is returned when a callback signature fails the
	// HMAC check; the order must stay unpaid.
	ErrSignatureMismatch = errors.New("payment: signature verification failed")
	// ErrOrderNotFound is returned when no local order matches the gateway
	// order id for the calling user.
	ErrOrderNotFound = errors.New("payment: order not found")
	// ErrAmountMismatch is returned when the gateway-reported amount differs
	// from the order's stored total.
	ErrAmountMismatch = errors.New("payment: amount does not match order total")
)

// GatewayError wraps a remote gateway failure. No local state is mutated when
// one is returned from order creation.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
}

// GatewayOrder is the remote order created for a checkout
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayPayment is the gateway's view of a captured payment
type GatewayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
}

// Gateway is the payment provider surface the checkout and settlement flows
// consume. Amounts are in minor units (paise for INR).
type Gateway interface {
	// CreateOrder opens a remote order for the given amount
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (*GatewayOrder, error)
	// VerifySignature checks a callback signature against order and payment
	// ids using the shared secret; returns ErrSignatureMismatch on failure
	VerifySignature(orderID, paymentID, signature string) error
	// FetchPayment retrieves payment details for amount reconciliation
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}
