package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kendall-kelly/rto-dispatch-api/models"
)

// LifecycleController moves trips along the status graph
type LifecycleController struct {
	resolver *ProfileResolver
	trips    *TripStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewLifecycleController creates a lifecycle controller
func NewLifecycleController(resolver *ProfileResolver, trips *TripStore, logger *slog.Logger) *LifecycleController {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleController{resolver: resolver, trips: trips, logger: logger, now: time.Now}
}

// Transition applies one status change on behalf of the caller.
// Of two racing transitions on the same trip at most one succeeds; the other
// gets ErrConflict.
func (l *LifecycleController) Transition(ctx context.Context, caller Caller, tripID string, target models.TripStatus) (*models.Trip, error) {
	log := l.logger.With("operation", "transition_trip", "caller_id", caller.ExternalID, "trip_id", tripID, "target", target)

	actor, _, err := l.resolver.ResolveOrProvision(ctx, caller)
	if err != nil {
		return nil, err
	}

	trip, err := l.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if !mayTransition(actor, trip) {
		log.Warn("trip transition forbidden", "actor_role", actor.Role, "actor_rto_location", actor.RTOLocation)
		return nil, newError(ErrForbidden, "FORBIDDEN", "You are not allowed to change this trip")
	}

	from := trip.Status
	if !from.CanTransitionTo(target) {
		return nil, invalidTransition(from, target)
	}

	swapped, err := l.trips.CompareAndSwapStatus(ctx, trip.ID, from, target, l.now())
	if err != nil {
		log.Error("trip transition failed", "error", err)
		return nil, err
	}
	if !swapped {
		log.Warn("trip transition lost a race", "from", from)
		return nil, newError(ErrConflict, "CONFLICT",
			fmt.Sprintf("Trip status changed concurrently; %s -> %s was not applied", from, target))
	}

	updated, err := l.trips.FindByID(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	log.Info("trip transitioned", "from", from)
	return updated, nil
}

// mayTransition: leaving pending needs the RTO of the trip's station; later
// edges may also be driven by the trip's own driver.
func mayTransition(actor *models.Profile, trip *models.Trip) bool {
	if actor.ServesStation(trip.RTOLocation) {
		return true
	}
	switch trip.Status {
	case models.StatusPending:
		return false
	case models.StatusApproved, models.StatusInProgress, models.StatusRejected, models.StatusCompleted:
		return actor.IsDriver() && actor.ID == trip.DriverID
	}
	return false
}

func invalidTransition(from, to models.TripStatus) *ServiceError {
	msg := fmt.Sprintf("Cannot move trip from %s to %s", from, to)
	if from.IsTerminal() {
		msg = fmt.Sprintf("Trip is %s and cannot change status", from)
	}
	return newError(ErrInvalidTransition, "INVALID_TRANSITION", msg)
}

// IsTransitionRejected reports whether err means the trip was left unchanged
// because of the state machine or a lost race
func IsTransitionRejected(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConflict)
}
