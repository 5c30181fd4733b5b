package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Functional roles a user can hold on a case
const (
	AssignmentPoliceInvestigator = "police_investigator"
	AssignmentProsecutor         = "prosecutor"
	AssignmentJudgeInstruction   = "judge_instruction"
	AssignmentJudgeTrial         = "judge_trial"
	AssignmentClerk              = "clerk"
	AssignmentBailiff            = "bailiff"
	AssignmentLawyer             = "lawyer"
)

// Assignment binds a professional user to a case
type Assignment struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CaseID string `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_case_user_role;index" json:"case_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_case_user_role;index" json:"user_id"`
	Role   string `gorm:"not null;uniqueIndex:idx_assignment_case_user_role" json:"role"`

	AssignedBy *string `gorm:"type:uuid" json:"assigned_by,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsValidAssignmentRole checks if the functional role is valid
func IsValidAssignmentRole(role string) bool {
	switch role {
	case AssignmentPoliceInvestigator, AssignmentProsecutor, AssignmentJudgeInstruction,
		AssignmentJudgeTrial, AssignmentClerk, AssignmentBailiff, AssignmentLawyer:
		return true
	}
	return false
}
