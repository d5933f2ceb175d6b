package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes the hex HMAC-SHA256 the gateway attaches to a successful
// payment, taken over "<gatewayOrderID>|<gatewayChargeID>" with the shared
// secret.
func Signature(secret, gatewayOrderID, gatewayChargeID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayChargeID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares it to the
// supplied one in constant time.
func VerifySignature(secret, gatewayOrderID, gatewayChargeID, signature string) bool {
	expected := Signature(secret, gatewayOrderID, gatewayChargeID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
