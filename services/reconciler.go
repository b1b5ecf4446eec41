package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kendall-kelly/rto-dispatch-api/models"
)

// Identity event types
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Outcome describes what applying a delivery did
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeUnchanged Outcome = "unchanged" // already present on create, or absent on delete
	OutcomeDuplicate Outcome = "duplicate" // delivery id already applied
	OutcomeIgnored   Outcome = "ignored"   // event type we do not handle
)

// Delivery is one raw identity event as received
type Delivery struct {
	Headers http.Header
	Body    []byte
}

// ID returns the delivery id header
func (d Delivery) ID() string {
	return d.Headers.Get(HeaderDeliveryID)
}

// IdentityEvent is the envelope sent by the identity provider
type IdentityEvent struct {
	Type string       `json:"type"`
	Data IdentityUser `json:"data"`
}

// IdentityUser is the user object inside an identity event
type IdentityUser struct {
	ID                    string          `json:"id"`
	EmailAddresses        []EmailAddress  `json:"email_addresses"`
	PrimaryEmailAddressID string          `json:"primary_email_address_id"`
	ImageURL              string          `json:"image_url"`
	PublicMetadata        ProfileMetadata `json:"public_metadata"`
}

// EmailAddress is one of the user's addresses
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// ProfileMetadata holds the dispatch attributes an administrator sets on a user
type ProfileMetadata struct {
	Role          string `json:"role"`
	VehicleNumber string `json:"vehicleNumber"`
	RTOLocation   string `json:"rtoLocation"`
}

// PrimaryEmail returns the address whose id matches primary_email_address_id
func (u IdentityUser) PrimaryEmail() string {
	for _, addr := range u.EmailAddresses {
		if addr.ID == u.PrimaryEmailAddressID {
			return strings.TrimSpace(addr.EmailAddress)
		}
	}
	return ""
}

// Reconciler applies identity events to the profile store.
// Each delivery is handled on its own; a failure never affects another delivery.
type Reconciler struct {
	verifier WebhookVerifier
	profiles *ProfileStore
	ledger   DeliveryLedger
	archive  EventArchive
	logger   *slog.Logger
}

// NewReconciler wires a reconciler. archive may be nil.
func NewReconciler(verifier WebhookVerifier, profiles *ProfileStore, ledger DeliveryLedger, archive EventArchive, logger *slog.Logger) *Reconciler {
	if archive == nil {
		archive = NopEventArchive{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		verifier: verifier,
		profiles: profiles,
		ledger:   ledger,
		archive:  archive,
		logger:   logger,
	}
}

// Handle authenticates and applies one delivery
func (r *Reconciler) Handle(ctx context.Context, d Delivery) (Outcome, error) {
	deliveryID := d.ID()
	log := r.logger.With("operation", "reconcile_identity_event", "delivery_id", deliveryID)

	// Authenticity is checked before the store is touched
	if deliveryID == "" || d.Headers.Get(HeaderTimestamp) == "" || d.Headers.Get(HeaderSignature) == "" {
		log.Warn("identity event rejected: missing signature headers")
		return "", newError(ErrUnauthenticated, "MISSING_SIGNATURE_HEADERS", "Missing delivery id, timestamp or signature header")
	}
	if err := r.verifier.Verify(d.Body, d.Headers); err != nil {
		log.Warn("identity event rejected: signature verification failed", "error", err)
		return "", &ServiceError{Kind: ErrUnauthenticated, Code: "INVALID_SIGNATURE", Message: "Invalid signature", Err: err}
	}

	var evt IdentityEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		log.Warn("identity event rejected: malformed body", "error", err)
		return "", &ServiceError{Kind: ErrInvalidRequest, Code: "MALFORMED_EVENT", Message: "Event body is not valid JSON", Err: err}
	}
	log = log.With("event_type", evt.Type, "external_id", evt.Data.ID)

	switch evt.Type {
	case EventUserCreated, EventUserUpdated, EventUserDeleted:
	default:
		log.Info("identity event ignored")
		return OutcomeIgnored, nil
	}

	seen, err := r.ledger.Seen(ctx, deliveryID)
	if err != nil {
		log.Error("delivery ledger unavailable", "error", err)
		return "", err
	}
	if seen {
		log.Info("identity event already applied")
		return OutcomeDuplicate, nil
	}

	if err := r.archive.Archive(ctx, deliveryID, d.Body); err != nil {
		log.Warn("failed to archive identity event", "error", err)
	}

	outcome, err := r.apply(ctx, evt)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			log.Error("identity event failed", "error", err)
		} else {
			log.Warn("identity event rejected", "error", err)
		}
		return "", err
	}

	if err := r.ledger.Record(ctx, deliveryID, evt.Type); err != nil {
		// The event itself is applied; a redelivery converges to the same state.
		log.Warn("failed to record delivery", "error", err)
	}

	log.Info("identity event applied", "outcome", outcome)
	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, evt IdentityEvent) (Outcome, error) {
	switch evt.Type {
	case EventUserCreated:
		fields, err := profileFieldsFromEvent(evt.Data)
		if err != nil {
			return "", err
		}
		_, created, err := r.profiles.InsertIfAbsent(ctx, evt.Data.ID, fields)
		if err != nil {
			return "", err
		}
		if created {
			return OutcomeCreated, nil
		}
		return OutcomeUnchanged, nil

	case EventUserUpdated:
		fields, err := profileFieldsFromEvent(evt.Data)
		if err != nil {
			return "", err
		}
		if _, _, err := r.profiles.Upsert(ctx, evt.Data.ID, fields); err != nil {
			return "", err
		}
		return OutcomeUpdated, nil

	case EventUserDeleted:
		if evt.Data.ID == "" {
			return "", newError(ErrInvalidRequest, "MISSING_USER_ID", "User ID not found")
		}
		deleted, err := r.profiles.DeleteByExternalID(ctx, evt.Data.ID)
		if err != nil {
			return "", err
		}
		if deleted {
			return OutcomeDeleted, nil
		}
		return OutcomeUnchanged, nil
	}
	return OutcomeIgnored, nil
}

// profileFieldsFromEvent validates a created/updated payload
func profileFieldsFromEvent(u IdentityUser) (ProfileFields, error) {
	if u.ID == "" {
		return ProfileFields{}, newError(ErrInvalidRequest, "MISSING_USER_ID", "User ID not found")
	}

	email := u.PrimaryEmail()
	if email == "" {
		return ProfileFields{}, newError(ErrInvalidRequest, "MISSING_EMAIL", "Primary email not found")
	}

	role, ok := models.ParseRole(u.PublicMetadata.Role)
	if !ok {
		return ProfileFields{}, newError(ErrInvalidRequest, "MISSING_ROLE", "Role must be DRIVER or RTO")
	}

	rtoLocation := strings.TrimSpace(u.PublicMetadata.RTOLocation)
	if rtoLocation == "" {
		return ProfileFields{}, newError(ErrInvalidRequest, "MISSING_RTO_LOCATION", "rtoLocation is required")
	}

	return ProfileFields{
		Email:         email,
		ImageURL:      optional(u.ImageURL),
		Role:          role,
		VehicleNumber: optional(u.PublicMetadata.VehicleNumber),
		RTOLocation:   rtoLocation,
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
