package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// VerifyWebhookSignature checks the HMAC-SHA512 signature Paystack computes
// over the raw request body with the account's secret key. Comparison is
// constant time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
