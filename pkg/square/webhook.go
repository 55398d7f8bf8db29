package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the HMAC Square attaches to every notification.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

// WebhookEnabled reports whether notifications can be verified.
func (c *Client) WebhookEnabled() bool {
	return c != nil && c.webhookSignatureKey != "" && c.webhookURL != ""
}

// VerifyWebhook checks signature against the configured key and notification URL.
func (c *Client) VerifyWebhook(payload []byte, signature string) bool {
	if !c.WebhookEnabled() {
		return false
	}
	return VerifyWebhookSignature(payload, signature, c.webhookSignatureKey, c.webhookURL)
}

// VerifyWebhookSignature validates a Square notification. Square signs the
// notification URL followed by the raw request body.
func VerifyWebhookSignature(payload []byte, signature, signatureKey, notificationURL string) bool {
	if signature == "" || signatureKey == "" || notificationURL == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(payload, signatureKey, notificationURL)), []byte(signature))
}

// SignWebhook returns the base64 signature Square would send for payload.
func SignWebhook(payload []byte, signatureKey, notificationURL string) string {
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
