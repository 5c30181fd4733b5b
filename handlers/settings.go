package handlers

import (
	"net/http"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

type settingsRequest struct {
	Version               int     `json:"version" validate:"gte=1"`
	MaxLoginAttempts      *int    `json:"max_login_attempts" validate:"omitempty,gte=1,lte=100"`
	LockoutMinutes        *int    `json:"lockout_minutes" validate:"omitempty,gte=1,lte=1440"`
	RequireStrongPassword *bool   `json:"require_strong_password"`
	MaintenanceMode       *bool   `json:"maintenance_mode"`
	MaintenanceMessage    *string `json:"maintenance_message" validate:"omitempty,max=500"`
}

// GetSettingsHandler returns the runtime policy
func GetSettingsHandler(c echo.Context) error {
	settings, err := services.GetSettings(db.DB)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettingsHandler changes the runtime policy; a stale version is rejected with 409
func UpdateSettingsHandler(c echo.Context) error {
	var req settingsRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	settings, err := services.UpdateSettings(c.Request().Context(), db.DB, services.Audit, actorFrom(c), services.SettingsUpdate{
		Version:               req.Version,
		MaxLoginAttempts:      req.MaxLoginAttempts,
		LockoutMinutes:        req.LockoutMinutes,
		RequireStrongPassword: req.RequireStrongPassword,
		MaintenanceMode:       req.MaintenanceMode,
		MaintenanceMessage:    req.MaintenanceMessage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}
