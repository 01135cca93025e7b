package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// GatewayVerifier checks the signature a payment gateway attaches to a
// completed order.
type GatewayVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

// HMACVerifier verifies hex HMAC-SHA256 signatures over "orderId|paymentId"
// keyed with the gateway key secret.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier. An empty secret is rejected so that a
// missing configuration never accepts every signature.
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("gateway key secret is empty")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

// Sign returns the expected signature for an order and payment.
func (v *HMACVerifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func (v *HMACVerifier) Verify(orderID, paymentID, signature string) bool {
	expected := v.Sign(orderID, paymentID)
	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected))
}
