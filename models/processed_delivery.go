package models

import "time"

// ProcessedDelivery records an identity event delivery that has been applied
type ProcessedDelivery struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DeliveryID  string    `gorm:"uniqueIndex;not null" json:"delivery_id"`
	EventType   string    `gorm:"not null" json:"event_type"`
	ProcessedAt time.Time `gorm:"autoCreateTime" json:"processed_at"`
}

// TableName specifies the table name for the ProcessedDelivery model
func (ProcessedDelivery) TableName() string {
	return "processed_deliveries"
}

// All returns every model the service migrates
func All() []interface{} {
	return []interface{}{&Profile{}, &Trip{}, &ProcessedDelivery{}}
}
