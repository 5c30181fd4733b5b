package services

import (
	"context"
	"errors"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// GetSettings returns the persisted runtime policy, creating the defaults on first use
func GetSettings(db *gorm.DB) (*models.SystemSetting, error) {
	var settings models.SystemSetting
	err := db.First(&settings, "id = ?", models.GlobalSettingsID).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Internal("failed to load settings", err)
	}

	settings = models.DefaultSystemSetting()
	if err := db.Where("id = ?", models.GlobalSettingsID).FirstOrCreate(&settings).Error; err != nil {
		return nil, Internal("failed to create default settings", err)
	}
	return &settings, nil
}

// SettingsUpdate changes runtime policy. Nil fields are left unchanged.
type SettingsUpdate struct {
	Version               int
	MaxLoginAttempts      *int
	LockoutMinutes        *int
	RequireStrongPassword *bool
	MaintenanceMode       *bool
	MaintenanceMessage    *string
}

// UpdateSettings applies an admin change to the runtime policy, guarded by its version
func UpdateSettings(ctx context.Context, db *gorm.DB, auditor *Auditor, actor Actor, input SettingsUpdate) (*models.SystemSetting, error) {
	settings, err := func() (*models.SystemSetting, error) {
		if err := Authorize(actor, models.RoleAdmin); err != nil {
			return nil, err
		}
		current, err := GetSettings(db.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		updates := map[string]interface{}{"updated_by": actor.ID}
		if input.MaxLoginAttempts != nil {
			if *input.MaxLoginAttempts < 1 || *input.MaxLoginAttempts > 50 {
				return nil, Validation("max_login_attempts must be between 1 and 50")
			}
			updates["max_login_attempts"] = *input.MaxLoginAttempts
		}
		if input.LockoutMinutes != nil {
			if *input.LockoutMinutes < 1 || *input.LockoutMinutes > 24*60 {
				return nil, Validation("lockout_minutes must be between 1 and 1440")
			}
			updates["lockout_minutes"] = *input.LockoutMinutes
		}
		if input.RequireStrongPassword != nil {
			updates["require_strong_password"] = *input.RequireStrongPassword
		}
		if input.MaintenanceMode != nil {
			updates["maintenance_mode"] = *input.MaintenanceMode
		}
		if input.MaintenanceMessage != nil {
			updates["maintenance_message"] = SanitizeText(*input.MaintenanceMessage)
		}

		version := input.Version
		if version == 0 {
			version = current.Version
		}
		if err := updateVersioned(db.WithContext(ctx), &models.SystemSetting{}, models.GlobalSettingsID, version, updates); err != nil {
			return nil, err
		}
		return GetSettings(db.WithContext(ctx))
	}()

	countFailure("settings.update", err)
	auditor.Record(ctx, actor, "settings.update", "SystemSetting", models.GlobalSettingsID, models.AuditSeverityCritical, err)
	if err != nil {
		return nil, err
	}
	return settings, nil
}
