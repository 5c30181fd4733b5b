package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Evidence status constants
const (
	EvidenceStatusHeld      = "held"
	EvidenceStatusReturned  = "returned"
	EvidenceStatusDestroyed = "destroyed"
)

// Custody actions
const (
	CustodyActionCollected   = "collected"
	CustodyActionTransferred = "transferred"
	CustodyActionExamined    = "examined"
	CustodyActionReturned    = "returned"
	CustodyActionDestroyed   = "destroyed"
)

// Evidence is an exhibit attached to a case, optionally backed by a stored file
type Evidence struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID      string `gorm:"type:uuid;not null;index" json:"case_id"`
	Label       string `gorm:"not null" json:"label"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Kind        string `json:"kind,omitempty"` // document, weapon, digital, biological...

	// Stored file, when the exhibit is digital or scanned
	StorageKey  string `json:"-"`
	FileName    string `json:"file_name,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	ContentHash string `gorm:"size:64" json:"content_hash,omitempty"` // SHA-256 of the stored bytes

	Status             string    `gorm:"not null;default:held" json:"status"`
	CollectedBy        string    `gorm:"type:uuid;not null" json:"collected_by"`
	CollectedAt        time.Time `gorm:"not null" json:"collected_at"`
	CurrentCustodianID string    `gorm:"type:uuid;not null;index" json:"current_custodian_id"`

	CustodyEntries []CustodyEntry `gorm:"foreignKey:EvidenceID" json:"custody_entries,omitempty"`
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CollectedAt.IsZero() {
		e.CollectedAt = time.Now()
	}
	return nil
}

func (Evidence) TableName() string {
	return "evidence"
}

// CustodyEntry is one link of an exhibit's chain of custody.
// Hash covers the entry fields and the previous entry's hash for the same exhibit.
type CustodyEntry struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	EvidenceID string  `gorm:"type:uuid;not null;index" json:"evidence_id"`
	Action     string  `gorm:"not null" json:"action"`
	FromUserID *string `gorm:"type:uuid" json:"from_user_id,omitempty"`
	ToUserID   string  `gorm:"type:uuid;not null" json:"to_user_id"`
	Note       string  `gorm:"type:text" json:"note,omitempty"`

	PrevHash string `gorm:"size:64" json:"prev_hash"`
	Hash     string `gorm:"size:64;not null" json:"hash"`
}

func (c *CustodyEntry) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}

func (CustodyEntry) TableName() string {
	return "custody_entries"
}
