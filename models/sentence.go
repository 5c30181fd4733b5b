package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentence is the quantified penalty attached to a signed decision
type Sentence struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID     string    `gorm:"type:uuid;not null;index" json:"case_id"`
	DecisionID string    `gorm:"type:uuid;not null;index" json:"decision_id"`
	Decision   *Decision `gorm:"foreignKey:DecisionID" json:"decision,omitempty"`
	DetaineeID *string   `gorm:"type:uuid;index" json:"detainee_id,omitempty"`

	FirmYears  int `gorm:"not null;default:0" json:"firm_years"`
	FirmMonths int `gorm:"not null;default:0" json:"firm_months"`
	FirmDays   int `gorm:"not null;default:0" json:"firm_days"`

	SuspendedYears  int `gorm:"not null;default:0" json:"suspended_years"`
	SuspendedMonths int `gorm:"not null;default:0" json:"suspended_months"`
	SuspendedDays   int `gorm:"not null;default:0" json:"suspended_days"`

	FineAmount    float64 `gorm:"not null;default:0" json:"fine_amount"`
	DamagesAmount float64 `gorm:"not null;default:0" json:"damages_amount"`

	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

func (s *Sentence) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (Sentence) TableName() string {
	return "sentences"
}

// HasFirmTime reports whether the sentence carries non-suspended prison time
func (s *Sentence) HasFirmTime() bool {
	return s.FirmYears > 0 || s.FirmMonths > 0 || s.FirmDays > 0
}
