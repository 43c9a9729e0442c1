// Package payment wraps the Razorpay gateway: order creation for phase one
// of a key purchase and callback signature verification for phase two.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Client talks to Razorpay. It implements apikey.Gateway.
type Client struct {
	api       *razorpay.Client
	keySecret string
}

// New builds a client from the Razorpay key id/secret pair.
func New(keyID, keySecret string) *Client {
	return &Client{
		api:       razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

// CreateOrder opens a pending order with the gateway and returns its order id.
func (c *Client) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create failed: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay order create returned no id")
	}
	return orderID, nil
}

// VerifySignature checks the checkout callback: Razorpay signs
// "<order_id>|<payment_id>" with the key secret using HMAC-SHA256.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return verify(orderID, paymentID, signature, c.keySecret)
}

func verify(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
