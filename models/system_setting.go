package models

import "time"

// GlobalSettingsID is the primary key of the single settings row
const GlobalSettingsID = "global"

// SystemSetting holds the persisted security and maintenance policy
type SystemSetting struct {
	ID        string    `gorm:"primarykey" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`

	// Security policy
	MaxLoginAttempts      int  `gorm:"not null;default:5" json:"max_login_attempts"`
	LockoutMinutes        int  `gorm:"not null;default:15" json:"lockout_minutes"`
	RequireStrongPassword bool `gorm:"not null;default:true" json:"require_strong_password"`

	// Maintenance
	MaintenanceMode    bool   `gorm:"not null;default:false" json:"maintenance_mode"`
	MaintenanceMessage string `json:"maintenance_message,omitempty"`

	UpdatedBy *string `gorm:"type:uuid" json:"updated_by,omitempty"`
	Version   int     `gorm:"not null;default:1" json:"version"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// DefaultSystemSetting returns the policy used before an admin changes anything
func DefaultSystemSetting() SystemSetting {
	return SystemSetting{
		ID:                    GlobalSettingsID,
		MaxLoginAttempts:      5,
		LockoutMinutes:        15,
		RequireStrongPassword: true,
		Version:               1,
	}
}
