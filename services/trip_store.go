package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"gorm.io/gorm"
)

// TripStore persists trips. Status changes go through CompareAndSwapStatus only.
type TripStore struct {
	conn *config.Connector
}

// NewTripStore creates a trip store on the shared connection
func NewTripStore(conn *config.Connector) *TripStore {
	return &TripStore{conn: conn}
}

func (s *TripStore) db(ctx context.Context) (*gorm.DB, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, storeError("connect to database", err)
	}
	return db.WithContext(ctx), nil
}

// Create inserts the trip, generating its id. Timestamps are set by the store.
func (s *TripStore) Create(ctx context.Context, trip *models.Trip) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if err := db.Create(trip).Error; err != nil {
		return storeError("create trip", err)
	}
	return nil
}

// FindByID loads a single trip
func (s *TripStore) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, newError(ErrNotFound, "TRIP_NOT_FOUND", "Trip not found")
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var trip models.Trip
	if err := db.Where("id = ?", id).First(&trip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "TRIP_NOT_FOUND", "Trip not found")
		}
		return nil, storeError("load trip", err)
	}
	return &trip, nil
}

// ListByDriver returns a driver's trips, newest first
func (s *TripStore) ListByDriver(ctx context.Context, driverID uint, status *models.TripStatus) ([]models.Trip, error) {
	return s.list(ctx, "driver_id = ?", driverID, status)
}

// ListByStation returns the trips routed to an RTO station, newest first
func (s *TripStore) ListByStation(ctx context.Context, rtoLocation string, status *models.TripStatus) ([]models.Trip, error) {
	return s.list(ctx, "rto_location = ?", rtoLocation, status)
}

func (s *TripStore) list(ctx context.Context, where string, arg interface{}, status *models.TripStatus) ([]models.Trip, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Where(where, arg)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	trips := []models.Trip{}
	if err := query.Order("created_at DESC").Find(&trips).Error; err != nil {
		return nil, storeError("list trips", err)
	}
	return trips, nil
}

// CompareAndSwapStatus moves the trip from one status to another only if it is
// still in from. It reports whether this call won; no other column changes
// besides updated_at.
func (s *TripStore) CompareAndSwapStatus(ctx context.Context, id string, from, to models.TripStatus, at time.Time) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&models.Trip{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, storeError("update trip status", result.Error)
	}
	return result.RowsAffected == 1, nil
}
