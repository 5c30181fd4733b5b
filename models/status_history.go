package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusHistory records every workflow transition of a complaint, case or incarceration
type StatusHistory struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	EntityType string `gorm:"not null;index:idx_status_history_entity" json:"entity_type"`
	EntityID   string `gorm:"type:uuid;not null;index:idx_status_history_entity" json:"entity_id"`
	Field      string `gorm:"not null;default:status" json:"field"` // status or stage
	FromValue  string `json:"from_value"`
	ToValue    string `gorm:"not null" json:"to_value"`

	ActorID   *string `gorm:"type:uuid" json:"actor_id,omitempty"`
	ActorRole string  `json:"actor_role,omitempty"`
	Note      string  `gorm:"type:text" json:"note,omitempty"`
}

func (s *StatusHistory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (StatusHistory) TableName() string {
	return "status_history"
}
