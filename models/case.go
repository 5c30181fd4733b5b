package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case status constants
const (
	CaseStatusOpen     = "open"
	CaseStatusClosed   = "closed"
	CaseStatusArchived = "archived"
)

// Case stage constants, in pipeline order
const (
	CaseStagePoliceInvestigation = "police_investigation"
	CaseStageProsecution         = "prosecution"
	CaseStageInstruction         = "instruction"
	CaseStageTrial               = "trial"
	CaseStageAppeal              = "appeal"
	CaseStageExecution           = "execution"
	CaseStageArchived            = "archived"
)

// Case priority constants
const (
	CasePriorityLow    = "low"
	CasePriorityNormal = "normal"
	CasePriorityHigh   = "high"
	CasePriorityUrgent = "urgent"
)

var caseStageOrder = map[string]int{
	CaseStagePoliceInvestigation: 0,
	CaseStageProsecution:         1,
	CaseStageInstruction:         2,
	CaseStageTrial:               3,
	CaseStageAppeal:              4,
	CaseStageExecution:           5,
	CaseStageArchived:            6,
}

// Case is the judicial proceeding opened from exactly one complaint
type Case struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ComplaintID string     `gorm:"type:uuid;not null;uniqueIndex" json:"complaint_id"`
	Complaint   *Complaint `gorm:"foreignKey:ComplaintID" json:"complaint,omitempty"`

	Reference string  `gorm:"not null;uniqueIndex" json:"reference"`
	CourtID   *string `gorm:"type:uuid;index" json:"court_id,omitempty"`
	Court     *Court  `gorm:"foreignKey:CourtID" json:"court,omitempty"`

	Type     string `json:"type,omitempty"`
	Status   string `gorm:"not null;default:open;index" json:"status"`
	Stage    string `gorm:"not null;default:police_investigation;index" json:"stage"`
	Priority string `gorm:"not null;default:normal" json:"priority"`

	OpenedAt time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`

	Version int `gorm:"not null;default:1" json:"version"`

	Assignments []Assignment `gorm:"foreignKey:CaseID" json:"assignments,omitempty"`
}

// BeforeCreate hook to generate UUID and set OpenedAt
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.OpenedAt.IsZero() {
		c.OpenedAt = time.Now()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsOpen checks if the case is open
func (c *Case) IsOpen() bool {
	return NormalizeStatus(c.Status) == CaseStatusOpen
}

// IsValidCaseStage checks if the stage is a known pipeline position
func IsValidCaseStage(stage string) bool {
	_, ok := caseStageOrder[NormalizeStatus(stage)]
	return ok
}

// CaseStageRank returns the pipeline position of a stage, or -1 when unknown
func CaseStageRank(stage string) int {
	if rank, ok := caseStageOrder[NormalizeStatus(stage)]; ok {
		return rank
	}
	return -1
}

// IsValidCasePriority checks if the priority is valid
func IsValidCasePriority(priority string) bool {
	switch NormalizeStatus(priority) {
	case CasePriorityLow, CasePriorityNormal, CasePriorityHigh, CasePriorityUrgent:
		return true
	}
	return false
}
