package models

import (
	"strings"
	"time"
)

// Role is the capability class of a profile
type Role string

const (
	RoleDriver Role = "DRIVER"
	RoleRTO    Role = "RTO"
)

// ParseRole matches identity-provider role strings case-insensitively.
// The second return is false for anything other than DRIVER or RTO.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleDriver:
		return RoleDriver, true
	case RoleRTO:
		return RoleRTO, true
	}
	return "", false
}

// Profile represents a driver or RTO station synchronized from the identity provider
type Profile struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ExternalID    string    `gorm:"uniqueIndex;not null" json:"externalId"` // identity provider subject id
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	ImageURL      *string   `json:"imageUrl,omitempty"`
	Role          Role      `gorm:"type:varchar(16);not null" json:"role"`
	VehicleNumber *string   `json:"vehicleNumber,omitempty"` // drivers only
	RTOLocation   string    `gorm:"not null;index" json:"rtoLocation"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// IsDriver reports whether the profile may request trips
func (p *Profile) IsDriver() bool {
	return p.Role == RoleDriver
}

// IsRTO reports whether the profile represents a station
func (p *Profile) IsRTO() bool {
	return p.Role == RoleRTO
}

// ServesStation reports whether this profile is the RTO for the given station
func (p *Profile) ServesStation(rtoLocation string) bool {
	return p.IsRTO() && p.RTOLocation == rtoLocation
}
