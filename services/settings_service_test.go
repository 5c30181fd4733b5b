package services

import (
	"context"
	"testing"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSettingsDefaults(t *testing.T) {
	db := setupTestDB(t)

	settings, err := GetSettings(db)
	require.NoError(t, err)
	assert.Equal(t, 5, settings.MaxLoginAttempts)
	assert.Equal(t, 15, settings.LockoutMinutes)
	assert.True(t, settings.RequireStrongPassword)
	assert.False(t, settings.MaintenanceMode)
	assert.Equal(t, 1, settings.Version)

	again, err := GetSettings(db)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)

	var count int64
	db.Model(&models.SystemSetting{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpdateSettings(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	auditor := NewAuditor(db)
	ctx := context.Background()
	admin := ActorFromUser(fx.Admin)

	attempts := 3
	maintenance := true
	updated, err := UpdateSettings(ctx, db, auditor, admin, SettingsUpdate{
		Version:          1,
		MaxLoginAttempts: &attempts,
		MaintenanceMode:  &maintenance,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.MaxLoginAttempts)
	assert.True(t, updated.MaintenanceMode)
	assert.Equal(t, 2, updated.Version)

	t.Run("stale version conflicts", func(t *testing.T) {
		_, err := UpdateSettings(ctx, db, auditor, admin, SettingsUpdate{Version: 1, MaxLoginAttempts: &attempts})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("out of range values", func(t *testing.T) {
		zero := 0
		_, err := UpdateSettings(ctx, db, auditor, admin, SettingsUpdate{Version: 2, LockoutMinutes: &zero})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("admins only", func(t *testing.T) {
		_, err := UpdateSettings(ctx, db, auditor, ActorFromUser(fx.Judge), SettingsUpdate{MaintenanceMode: &maintenance})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	var logs []models.AuditLog
	require.NoError(t, db.Where("action = ?", "settings.update").Order("sequence ASC").Find(&logs).Error)
	require.Len(t, logs, 4)
	assert.Equal(t, models.AuditStatusSuccess, logs[0].Status)
	assert.Equal(t, models.AuditSeverityCritical, logs[0].Severity)
	assert.Equal(t, models.AuditStatusDenied, logs[3].Status)
}
