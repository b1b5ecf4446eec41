package services

import (
	"fmt"
	"net/http"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Headers carried by every identity event delivery
const (
	HeaderDeliveryID = "svix-id"
	HeaderTimestamp  = "svix-timestamp"
	HeaderSignature  = "svix-signature"
)

// WebhookVerifier checks that a delivery was signed by the identity provider
// and that its timestamp is inside the tolerance window
type WebhookVerifier interface {
	Verify(body []byte, headers http.Header) error
}

// SvixVerifier verifies HMAC-SHA256 signatures over "<id>.<timestamp>.<body>"
// with a five minute timestamp tolerance
type SvixVerifier struct {
	wh *svix.Webhook
}

// NewSvixVerifier creates a verifier from a "whsec_" prefixed secret
func NewSvixVerifier(secret string) (*SvixVerifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &SvixVerifier{wh: wh}, nil
}

func (v *SvixVerifier) Verify(body []byte, headers http.Header) error {
	return v.wh.Verify(body, headers)
}

// Sign produces the signature header value for a delivery. Used by tests and
// local tooling that replays archived events.
func (v *SvixVerifier) Sign(deliveryID string, at time.Time, body []byte) (string, error) {
	return v.wh.Sign(deliveryID, at, body)
}
