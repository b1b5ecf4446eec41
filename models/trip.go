package models

import (
	"time"
)

// CriticalLevel is the urgency a driver attaches to a trip request
type CriticalLevel string

const (
	CriticalLow    CriticalLevel = "low"
	CriticalMedium CriticalLevel = "medium"
	CriticalHigh   CriticalLevel = "high"
)

// ParseCriticalLevel returns false for anything other than low, medium or high
func ParseCriticalLevel(s string) (CriticalLevel, bool) {
	switch CriticalLevel(s) {
	case CriticalLow, CriticalMedium, CriticalHigh:
		return CriticalLevel(s), true
	}
	return "", false
}

// Trip is a single dispatch request from a driver to an RTO station
type Trip struct {
	ID            string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DriverID      uint          `gorm:"not null;index" json:"driverId"`             // profile id; no FK so profile deletion leaves the trip in place
	RTOLocation   string        `gorm:"not null;index" json:"rtoLocation"`          // copied from the driver at creation, never recomputed
	StartLocation string        `gorm:"not null" json:"startLocation"`
	EndLocation   string        `gorm:"not null" json:"endLocation"`
	CriticalLevel CriticalLevel `gorm:"type:varchar(16);not null" json:"criticalLevel"`
	Status        TripStatus    `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// TableName specifies the table name for the Trip model
func (Trip) TableName() string {
	return "trips"
}

// TripView is a trip together with its driver, if the driver profile still exists
type TripView struct {
	Trip
	Driver *Profile `json:"driver"`
}
