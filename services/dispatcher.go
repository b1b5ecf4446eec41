package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/rto-dispatch-api/models"
)

// TripRequest is a driver's request for an emergency trip
type TripRequest struct {
	StartLocation string `json:"startLocation"`
	EndLocation   string `json:"endLocation"`
	CriticalLevel string `json:"criticalLevel"`
}

// Dispatcher creates trips and routes each one to its driver's RTO station.
// It does not deduplicate: every successful call creates exactly one trip.
type Dispatcher struct {
	resolver *ProfileResolver
	trips    *TripStore
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(resolver *ProfileResolver, trips *TripStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{resolver: resolver, trips: trips, logger: logger}
}

// Dispatch resolves (or provisions) the caller's profile and then creates the
// trip described by body. The body is only looked at once the caller is known,
// so identity and role errors win over request errors.
func (d *Dispatcher) Dispatch(ctx context.Context, caller Caller, body []byte) (*models.Trip, error) {
	profile, _, err := d.resolver.ResolveOrProvision(ctx, caller)
	if err != nil {
		return nil, err
	}
	return d.DispatchFor(ctx, profile, DecodeTripRequest(body))
}

// DecodeTripRequest reads a trip request body. A body that is not a JSON
// object decodes to an empty request and fails field validation.
func DecodeTripRequest(body []byte) TripRequest {
	var req TripRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return TripRequest{}
	}
	return req
}

// DispatchFor creates a pending trip for an already resolved profile.
// The trip is routed to the station named by the profile's rtoLocation.
func (d *Dispatcher) DispatchFor(ctx context.Context, profile *models.Profile, req TripRequest) (*models.Trip, error) {
	if !profile.IsDriver() {
		return nil, newError(ErrForbidden, "FORBIDDEN", "Forbidden: Not a driver")
	}

	start := strings.TrimSpace(req.StartLocation)
	end := strings.TrimSpace(req.EndLocation)
	if start == "" || end == "" || req.CriticalLevel == "" {
		return nil, newError(ErrInvalidRequest, "MISSING_FIELDS", "Missing required fields")
	}
	level, ok := models.ParseCriticalLevel(req.CriticalLevel)
	if !ok {
		return nil, newError(ErrInvalidRequest, "INVALID_CRITICAL_LEVEL", "criticalLevel must be one of low, medium, high")
	}

	trip := &models.Trip{
		DriverID:      profile.ID,
		RTOLocation:   profile.RTOLocation,
		StartLocation: start,
		EndLocation:   end,
		CriticalLevel: level,
		Status:        models.StatusPending,
	}
	if err := d.trips.Create(ctx, trip); err != nil {
		d.logger.Error("trip creation failed",
			"operation", "dispatch_trip",
			"caller_id", profile.ExternalID,
			"error", err)
		return nil, err
	}

	d.logger.Info("trip dispatched",
		"operation", "dispatch_trip",
		"caller_id", profile.ExternalID,
		"trip_id", trip.ID,
		"rto_location", trip.RTOLocation,
		"critical_level", trip.CriticalLevel)
	return trip, nil
}
