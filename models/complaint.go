package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Complaint status constants
const (
	ComplaintStatusPending            = "pending"
	ComplaintStatusReceived           = "received"
	ComplaintStatusUnderInvestigation = "under_investigation"
	ComplaintStatusTransmitted        = "transmitted" // forwarded to the prosecutor
	ComplaintStatusProcessed          = "processed"   // prosecution opened a case
	ComplaintStatusUnderInstruction   = "under_instruction"
	ComplaintStatusClosed             = "closed"    // classement sans suite
	ComplaintStatusDismissed          = "dismissed" // non-lieu
)

// ErrImmutableComplaintField is returned when an update touches a generated public identifier
var ErrImmutableComplaintField = errors.New("tracking code and verification token cannot be changed")

// Complaint is a citizen-filed report, the entry point of the workflow
type Complaint struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CitizenID string `gorm:"type:uuid;not null;index" json:"citizen_id"`
	Citizen   *User  `gorm:"foreignKey:CitizenID" json:"citizen,omitempty"`

	PoliceStationID *string        `gorm:"type:uuid;index" json:"police_station_id,omitempty"`
	PoliceStation   *PoliceStation `gorm:"foreignKey:PoliceStationID" json:"police_station,omitempty"`

	Description        string `gorm:"type:text;not null" json:"description"`
	ProvisionalOffence string `json:"provisional_offence"`
	Location           string `json:"location,omitempty"`

	Status            string    `gorm:"not null;default:pending;index" json:"status"`
	TrackingCode      string    `gorm:"not null;uniqueIndex" json:"tracking_code"`
	VerificationToken string    `gorm:"not null;uniqueIndex" json:"verification_token"`
	FiledAt           time.Time `gorm:"not null" json:"filed_at"`

	// Optimistic concurrency token, incremented by every workflow write
	Version int `gorm:"not null;default:1" json:"version"`
}

// BeforeCreate hook to generate UUID and set FiledAt
func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.FiledAt.IsZero() {
		c.FiledAt = time.Now()
	}
	if c.Status == "" {
		c.Status = ComplaintStatusPending
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}

// BeforeUpdate keeps the public identifiers immutable
func (c *Complaint) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("TrackingCode", "VerificationToken") {
		return ErrImmutableComplaintField
	}
	return nil
}

func (Complaint) TableName() string {
	return "complaints"
}

// NormalizeStatus lower-cases and trims a status value before any comparison
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsTerminal reports whether the complaint can no longer move through the workflow
func (c *Complaint) IsTerminal() bool {
	return IsTerminalComplaintStatus(c.Status)
}

// IsTerminalComplaintStatus checks a raw status value, case-insensitively
func IsTerminalComplaintStatus(status string) bool {
	s := NormalizeStatus(status)
	return s == ComplaintStatusClosed || s == ComplaintStatusDismissed
}

// IsValidComplaintStatus checks if the status is known
func IsValidComplaintStatus(status string) bool {
	switch NormalizeStatus(status) {
	case ComplaintStatusPending, ComplaintStatusReceived, ComplaintStatusUnderInvestigation,
		ComplaintStatusTransmitted, ComplaintStatusProcessed, ComplaintStatusUnderInstruction,
		ComplaintStatusClosed, ComplaintStatusDismissed:
		return true
	}
	return false
}
