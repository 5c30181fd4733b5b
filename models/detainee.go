package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Detainee legal status
const (
	DetaineeStatusPreventive = "preventive"
	DetaineeStatusConvicted  = "convicted"
	DetaineeStatusReleased   = "released"
)

// Detainee is an identity record for a person held in custody
type Detainee struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	// National identification number; unique when present
	NIU *string `gorm:"uniqueIndex" json:"niu,omitempty"`

	FirstName   string     `gorm:"not null" json:"first_name"`
	LastName    string     `gorm:"not null" json:"last_name"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Nationality string     `json:"nationality,omitempty"`

	Status string `gorm:"not null;default:preventive" json:"status"`
}

func (d *Detainee) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.NIU != nil && *d.NIU == "" {
		d.NIU = nil
	}
	return nil
}

func (Detainee) TableName() string {
	return "detainees"
}

// FullName returns the display name of the detainee
func (d *Detainee) FullName() string {
	return d.FirstName + " " + d.LastName
}
