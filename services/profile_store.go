package services

import (
	"context"
	"errors"
	"time"

	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"gorm.io/gorm"
)

// ProfileFields are the mutable attributes an identity event may overwrite
type ProfileFields struct {
	Email         string
	ImageURL      *string
	Role          models.Role
	VehicleNumber *string
	RTOLocation   string
}

// ProfileStore persists profiles. Every call is a fresh query.
type ProfileStore struct {
	conn *config.Connector
}

// NewProfileStore creates a profile store on the shared connection
func NewProfileStore(conn *config.Connector) *ProfileStore {
	return &ProfileStore{conn: conn}
}

func (s *ProfileStore) db(ctx context.Context) (*gorm.DB, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, storeError("connect to database", err)
	}
	return db.WithContext(ctx), nil
}

// FindByExternalID looks a profile up by its identity provider id
func (s *ProfileStore) FindByExternalID(ctx context.Context, externalID string) (*models.Profile, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := db.Where("external_id = ?", externalID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "PROFILE_NOT_FOUND", "Profile not found")
		}
		return nil, storeError("load profile", err)
	}
	return &profile, nil
}

// FindByID looks a profile up by its local id
func (s *ProfileStore) FindByID(ctx context.Context, id uint) (*models.Profile, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "PROFILE_NOT_FOUND", "Profile not found")
		}
		return nil, storeError("load profile", err)
	}
	return &profile, nil
}

// InsertIfAbsent creates the profile unless one already exists for its external id.
// It returns the stored profile and whether this call created it.
func (s *ProfileStore) InsertIfAbsent(ctx context.Context, externalID string, fields ProfileFields) (*models.Profile, bool, error) {
	existing, err := s.FindByExternalID(ctx, externalID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, false, err
	}

	profile := newProfile(externalID, fields)
	if err := db.Create(&profile).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, storeError("create profile", err)
		}
		// Lost a race on the external id, or the email belongs to someone else.
		if existing, findErr := s.FindByExternalID(ctx, externalID); findErr == nil {
			return existing, false, nil
		}
		return nil, false, emailConflict()
	}
	return &profile, true, nil
}

// Upsert overwrites every mutable field of the profile, creating it if absent.
// It returns the stored profile and whether this call created it.
func (s *ProfileStore) Upsert(ctx context.Context, externalID string, fields ProfileFields) (*models.Profile, bool, error) {
	existing, err := s.FindByExternalID(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		profile, created, err := s.InsertIfAbsent(ctx, externalID, fields)
		if err != nil || created {
			return profile, created, err
		}
		// Created concurrently; fall through and overwrite it.
		existing = profile
	} else if err != nil {
		return nil, false, err
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, false, err
	}

	update := newProfile(externalID, fields)
	update.UpdatedAt = time.Now()
	err = db.Model(existing).
		Select("Email", "ImageURL", "Role", "VehicleNumber", "RTOLocation", "UpdatedAt").
		Updates(&update).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, emailConflict()
		}
		return nil, false, storeError("update profile", err)
	}

	return s.reload(ctx, externalID)
}

// DeleteByExternalID removes the profile. Deleting an absent profile is not an error.
func (s *ProfileStore) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	result := db.Where("external_id = ?", externalID).Delete(&models.Profile{})
	if result.Error != nil {
		return false, storeError("delete profile", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *ProfileStore) reload(ctx context.Context, externalID string) (*models.Profile, bool, error) {
	profile, err := s.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}
	return profile, false, nil
}

func newProfile(externalID string, fields ProfileFields) models.Profile {
	return models.Profile{
		ExternalID:    externalID,
		Email:         fields.Email,
		ImageURL:      fields.ImageURL,
		Role:          fields.Role,
		VehicleNumber: fields.VehicleNumber,
		RTOLocation:   fields.RTOLocation,
	}
}

func emailConflict() *ServiceError {
	return newError(ErrConflict, "EMAIL_EXISTS", "A profile with this email already exists")
}
