package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeComplaintUpdate = "COMPLAINT_UPDATE"
	NotificationTypeCaseUpdate      = "CASE_UPDATE"
	NotificationTypeDecision        = "DECISION"
	NotificationTypeSOS             = "SOS"
	NotificationTypeSystem          = "SYSTEM"
)

// Notification is an in-app message for one user about a complaint or a case.
// Citizens are only ever pointed at their complaint.
type Notification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID string `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type   string `gorm:"not null" json:"type"`
	Title  string `gorm:"not null" json:"title"`

	Message      string `gorm:"type:text" json:"message"`
	ResourceType string `gorm:"size:20;index:idx_notifications_resource,priority:1" json:"resource_type,omitempty"`
	ResourceID   string `gorm:"type:uuid;index:idx_notifications_resource,priority:2" json:"resource_id,omitempty"`

	Emailed bool       `gorm:"not null;default:false" json:"emailed"`
	ReadAt  *time.Time `gorm:"index:idx_notifications_user_read,priority:2" json:"read_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}
