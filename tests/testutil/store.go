package testutil

import (
	"errors"
	"testing"

	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestConnector returns a connector over a fresh, migrated in-memory SQLite
// database. A single connection keeps every goroutine on the same database.
func NewTestConnector(t *testing.T) (*config.Connector, *gorm.DB) {
	t.Helper()

	cfg := config.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return config.NewConnectorFromDB(db), db
}

// NewUnavailableConnector returns a connector whose every open fails, and a
// counter of how many times it was tried
func NewUnavailableConnector() (*config.Connector, *int) {
	attempts := 0
	conn := config.NewConnectorFunc(func() (*gorm.DB, error) {
		attempts++
		return nil, errors.New("connection refused")
	})
	return conn, &attempts
}

// SeedProfile inserts a profile directly
func SeedProfile(t *testing.T, db *gorm.DB, externalID string, role models.Role, rtoLocation string) models.Profile {
	t.Helper()

	profile := models.Profile{
		ExternalID:  externalID,
		Email:       externalID + "@example.com",
		Role:        role,
		RTOLocation: rtoLocation,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}
	return profile
}

// CountTrips returns the number of trip rows
func CountTrips(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	if err := db.Model(&models.Trip{}).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count trips: %v", err)
	}
	return n
}
