package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform roles
const (
	RoleCitizen       = "citizen"
	RolePolice        = "police"
	RoleProsecutor    = "prosecutor"
	RoleJudge         = "judge"
	RoleClerk         = "clerk"
	RoleAdmin         = "admin"
	RolePrisonOfficer = "prison_officer"
	RoleLawyer        = "lawyer"
	RoleBailiff       = "bailiff"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"not null;default:citizen;index" json:"role"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	// Organization attachments, depending on role
	CourtID         *string `gorm:"type:uuid;index" json:"court_id,omitempty"`
	PoliceStationID *string `gorm:"type:uuid;index" json:"police_station_id,omitempty"`
	PrisonID        *string `gorm:"type:uuid;index" json:"prison_id,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsMagistrate reports whether the user belongs to the bench or the prosecution
func (u *User) IsMagistrate() bool {
	return u.Role == RoleJudge || u.Role == RoleProsecutor
}

// IsValidRole checks if the role is one of the platform roles
func IsValidRole(role string) bool {
	switch role {
	case RoleCitizen, RolePolice, RoleProsecutor, RoleJudge, RoleClerk,
		RoleAdmin, RolePrisonOfficer, RoleLawyer, RoleBailiff:
		return true
	}
	return false
}
