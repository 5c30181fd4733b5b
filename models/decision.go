package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decision kinds
const (
	DecisionKindConviction = "conviction"
	DecisionKindAcquittal  = "acquittal"
	DecisionKindDismissal  = "dismissal"
	DecisionKindOther      = "other"
)

// Decision is a judicial ruling; it is frozen once signed
type Decision struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID  string  `gorm:"type:uuid;not null;index" json:"case_id"`
	Case    *Case   `gorm:"foreignKey:CaseID" json:"case,omitempty"`
	CourtID string  `gorm:"type:uuid;not null;index" json:"court_id"`
	JudgeID *string `gorm:"type:uuid;index" json:"judge_id,omitempty"`

	DecisionNumber string    `gorm:"not null;uniqueIndex" json:"decision_number"`
	Kind           string    `gorm:"not null;default:other" json:"kind"`
	Verdict        string    `gorm:"type:text;not null" json:"verdict"`
	DecidedAt      time.Time `gorm:"not null" json:"decided_at"`

	SignedBy    *string    `gorm:"type:uuid" json:"signed_by,omitempty"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`
	SignifiedAt *time.Time `json:"signified_at,omitempty"`
}

func (d *Decision) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}
	return nil
}

func (Decision) TableName() string {
	return "decisions"
}

// IsSigned reports whether the decision is frozen
func (d *Decision) IsSigned() bool {
	return d.SignedBy != nil && *d.SignedBy != ""
}

// IsValidDecisionKind checks if the kind is valid
func IsValidDecisionKind(kind string) bool {
	switch kind {
	case DecisionKindConviction, DecisionKindAcquittal, DecisionKindDismissal, DecisionKindOther:
		return true
	}
	return false
}

// Signification records a bailiff serving a signed decision on a party
type Signification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DecisionID  string    `gorm:"type:uuid;not null;index" json:"decision_id"`
	BailiffID   string    `gorm:"type:uuid;not null;index" json:"bailiff_id"`
	PartyName   string    `gorm:"not null" json:"party_name"`
	Method      string    `json:"method"` // in person, at domicile, at town hall
	SignifiedAt time.Time `gorm:"not null" json:"signified_at"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
}

func (s *Signification) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SignifiedAt.IsZero() {
		s.SignifiedAt = time.Now()
	}
	return nil
}

func (Signification) TableName() string {
	return "significations"
}
