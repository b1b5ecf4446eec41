package services

import (
	"context"
	"errors"

	"github.com/kendall-kelly/rto-dispatch-api/models"
)

// TripQuery serves the read side of the dashboards
type TripQuery struct {
	resolver *ProfileResolver
	profiles *ProfileStore
	trips    *TripStore
}

// NewTripQuery creates a trip query service
func NewTripQuery(resolver *ProfileResolver, profiles *ProfileStore, trips *TripStore) *TripQuery {
	return &TripQuery{resolver: resolver, profiles: profiles, trips: trips}
}

// List returns the caller's trips: a driver sees their own, an RTO sees its station's
func (q *TripQuery) List(ctx context.Context, caller Caller, status *models.TripStatus) ([]models.Trip, error) {
	profile, _, err := q.resolver.ResolveOrProvision(ctx, caller)
	if err != nil {
		return nil, err
	}

	switch profile.Role {
	case models.RoleDriver:
		return q.trips.ListByDriver(ctx, profile.ID, status)
	case models.RoleRTO:
		return q.trips.ListByStation(ctx, profile.RTOLocation, status)
	}
	return nil, newError(ErrForbidden, "FORBIDDEN", "Unknown role")
}

// Get returns one trip with its driver. Driver is nil when the driver's
// profile has since been deleted.
func (q *TripQuery) Get(ctx context.Context, caller Caller, tripID string) (*models.TripView, error) {
	profile, _, err := q.resolver.ResolveOrProvision(ctx, caller)
	if err != nil {
		return nil, err
	}

	trip, err := q.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	owns := profile.IsDriver() && profile.ID == trip.DriverID
	if !owns && !profile.ServesStation(trip.RTOLocation) {
		// Indistinguishable from a missing trip to other callers
		return nil, newError(ErrNotFound, "TRIP_NOT_FOUND", "Trip not found")
	}

	view := &models.TripView{Trip: *trip}
	driver, err := q.profiles.FindByID(ctx, trip.DriverID)
	switch {
	case err == nil:
		view.Driver = driver
	case errors.Is(err, ErrNotFound):
		// orphaned
	default:
		return nil, err
	}
	return view, nil
}
