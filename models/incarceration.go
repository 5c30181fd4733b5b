package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Incarceration status constants
const (
	IncarcerationStatusPreventive = "preventive"
	IncarcerationStatusConvicted  = "convicted"
	IncarcerationStatusReleased   = "released"
	IncarcerationStatusEscaped    = "escaped"
)

// ActiveIncarcerationStatuses are the statuses that hold a detainee in a facility
var ActiveIncarcerationStatuses = []string{IncarcerationStatusPreventive, IncarcerationStatusConvicted}

// Incarceration is a detainee's custody record at a facility
type Incarceration struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DetaineeID string    `gorm:"type:uuid;not null;index:idx_incarceration_detainee_case" json:"detainee_id"`
	Detainee   *Detainee `gorm:"foreignKey:DetaineeID" json:"detainee,omitempty"`
	PrisonID   string    `gorm:"type:uuid;not null;index" json:"prison_id"`
	Prison     *Prison   `gorm:"foreignKey:PrisonID" json:"prison,omitempty"`
	CaseID     *string   `gorm:"type:uuid;index:idx_incarceration_detainee_case" json:"case_id,omitempty"`

	Status            string     `gorm:"not null;default:preventive;index" json:"status"`
	EntryDate         time.Time  `gorm:"not null" json:"entry_date"`
	ReleaseDate       *time.Time `json:"release_date,omitempty"`
	ActualReleaseDate *time.Time `json:"actual_release_date,omitempty"`
	Observation       string     `gorm:"type:text" json:"observation,omitempty"`
}

func (i *Incarceration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.EntryDate.IsZero() {
		i.EntryDate = time.Now()
	}
	return nil
}

func (Incarceration) TableName() string {
	return "incarcerations"
}

// IsActive reports whether the detainee is still held under this record
func (i *Incarceration) IsActive() bool {
	s := NormalizeStatus(i.Status)
	return s == IncarcerationStatusPreventive || s == IncarcerationStatusConvicted
}
