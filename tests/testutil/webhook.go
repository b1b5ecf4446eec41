package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/kendall-kelly/rto-dispatch-api/services"
)

// WebhookSecret is a well-formed signing secret for tests
const WebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

// NewVerifier returns a verifier for WebhookSecret
func NewVerifier(t *testing.T) *services.SvixVerifier {
	t.Helper()

	v, err := services.NewSvixVerifier(WebhookSecret)
	if err != nil {
		t.Fatalf("Failed to create webhook verifier: %v", err)
	}
	return v
}

// SignedHeaders returns the three delivery headers for body, signed at the given time
func SignedHeaders(t *testing.T, deliveryID string, at time.Time, body []byte) http.Header {
	t.Helper()

	signature, err := NewVerifier(t).Sign(deliveryID, at, body)
	if err != nil {
		t.Fatalf("Failed to sign delivery: %v", err)
	}

	h := http.Header{}
	h.Set(services.HeaderDeliveryID, deliveryID)
	h.Set(services.HeaderTimestamp, strconv.FormatInt(at.Unix(), 10))
	h.Set(services.HeaderSignature, signature)
	h.Set("Content-Type", "application/json")
	return h
}

// UserEvent builds an identity event body
func UserEvent(t *testing.T, eventType, externalID, email, role, rtoLocation string) []byte {
	t.Helper()

	data := map[string]interface{}{
		"id":        externalID,
		"image_url": "https://img.example.com/" + externalID + ".png",
		"public_metadata": map[string]interface{}{
			"role":          role,
			"vehicleNumber": "KA-01-" + externalID,
			"rtoLocation":   rtoLocation,
		},
	}
	if email != "" {
		data["email_addresses"] = []map[string]string{
			{"id": "idn_" + externalID, "email_address": email},
		}
		data["primary_email_address_id"] = "idn_" + externalID
	}

	body, err := json.Marshal(map[string]interface{}{
		"type":   eventType,
		"object": "event",
		"data":   data,
	})
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return body
}

// DeletedEvent builds a user.deleted body
func DeletedEvent(externalID string) []byte {
	return []byte(fmt.Sprintf(`{"type":"user.deleted","object":"event","data":{"id":%q,"deleted":true}}`, externalID))
}

// SignedDelivery signs body now and wraps it as a delivery
func SignedDelivery(t *testing.T, deliveryID string, body []byte) services.Delivery {
	t.Helper()
	return services.Delivery{Headers: SignedHeaders(t, deliveryID, time.Now(), body), Body: body}
}
