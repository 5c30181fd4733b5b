package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SOS alert status constants
const (
	SOSStatusOpen         = "open"
	SOSStatusAcknowledged = "acknowledged"
	SOSStatusResolved     = "resolved"
)

// SOSAlert is a distress signal from the mobile client, routed to the nearest station
type SOSAlert struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CitizenID  *string `gorm:"type:uuid;index" json:"citizen_id,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Message    string  `gorm:"type:text" json:"message,omitempty"`
	StationID  string  `gorm:"type:uuid;index" json:"station_id"`
	DistanceKm float64 `json:"distance_km"`
	Status     string  `gorm:"not null;default:open" json:"status"`

	AcknowledgedBy *string    `gorm:"type:uuid" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

func (s *SOSAlert) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = SOSStatusOpen
	}
	return nil
}

func (SOSAlert) TableName() string {
	return "sos_alerts"
}
