package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseNote is a professional note on a case, never visible to citizens
type CaseNote struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CaseID       string `gorm:"type:uuid;not null;index" json:"case_id"`
	AuthorID     string `gorm:"type:uuid;not null" json:"author_id"`
	Author       *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content      string `gorm:"type:text;not null" json:"content"`
	Confidential bool   `gorm:"not null;default:false" json:"confidential"`
}

func (n *CaseNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (CaseNote) TableName() string {
	return "case_notes"
}

// Hearing status constants
const (
	HearingStatusScheduled = "scheduled"
	HearingStatusHeld      = "held"
	HearingStatusPostponed = "postponed"
	HearingStatusCancelled = "cancelled"
)

// Hearing is a court session scheduled for a case
type Hearing struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID      string    `gorm:"type:uuid;not null;index" json:"case_id"`
	CourtID     *string   `gorm:"type:uuid;index" json:"court_id,omitempty"`
	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Room        string    `json:"room,omitempty"`
	Kind        string    `json:"kind,omitempty"` // instruction, trial, appeal
	Status      string    `gorm:"not null;default:scheduled" json:"status"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
}

func (h *Hearing) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

func (Hearing) TableName() string {
	return "hearings"
}

// Warrant kinds and statuses
const (
	WarrantKindArrest    = "arrest"
	WarrantKindSearch    = "search"
	WarrantKindCommittal = "committal"

	WarrantStatusIssued    = "issued"
	WarrantStatusExecuted  = "executed"
	WarrantStatusCancelled = "cancelled"
)

// Warrant is an order issued by a magistrate on a case
type Warrant struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID     string     `gorm:"type:uuid;not null;index" json:"case_id"`
	Kind       string     `gorm:"not null" json:"kind"`
	TargetName string     `gorm:"not null" json:"target_name"`
	Reason     string     `gorm:"type:text" json:"reason,omitempty"`
	IssuedBy   string     `gorm:"type:uuid;not null" json:"issued_by"`
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	Status     string     `gorm:"not null;default:issued;index" json:"status"`
	ExecutedBy *string    `gorm:"type:uuid" json:"executed_by,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

func (w *Warrant) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.IssuedAt.IsZero() {
		w.IssuedAt = time.Now()
	}
	return nil
}

func (Warrant) TableName() string {
	return "warrants"
}

// IsValidWarrantKind checks if the kind is valid
func IsValidWarrantKind(kind string) bool {
	return kind == WarrantKindArrest || kind == WarrantKindSearch || kind == WarrantKindCommittal
}
