// internal/domain/payment/razorpay.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/your-org/storefront-backend/internal/config"
)

// RazorpayClient talks to the Razorpay REST API. All requests carry the key
// pair via basic auth and are bounded by the configured client timeout.
type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewRazorpayClient creates a gateway client from configuration
func NewRazorpayClient(cfg *config.Config) *RazorpayClient {
	return &RazorpayClient{
		keyID:     cfg.External.Razorpay.KeyID,
		keySecret: cfg.External.Razorpay.KeySecret,
		baseURL:   cfg.External.Razorpay.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.External.Razorpay.Timeout,
		},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder opens a remote order for the amount in minor units
func (r *RazorpayClient) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (*GatewayOrder, error) {
	body, err := r.call(ctx, http.MethodPost, "/orders", createOrderRequest{
		Amount:   amountMinorUnits,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, err
	}

	var gatewayOrder GatewayOrder
	if err := json.Unmarshal(body, &gatewayOrder); err != nil {
		return nil, fmt.Errorf("failed to parse gateway order response: %w", err)
	}
	return &gatewayOrder, nil
}

// VerifySignature checks the callback signature: HMAC-SHA256 over
// "order_id|payment_id" keyed with the secret, compared in constant time.
func (r *RazorpayClient) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// FetchPayment retrieves the gateway's record of a payment
func (r *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	body, err := r.call(ctx, http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var gatewayPayment GatewayPayment
	if err := json.Unmarshal(body, &gatewayPayment); err != nil {
		return nil, fmt.Errorf("failed to parse gateway payment response: %w", err)
	}
	return &gatewayPayment, nil
}

// call makes an authenticated JSON request against the gateway API
func (r *RazorpayClient) call(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return respBody, nil
}
