package middleware

import (
	"net/http"

	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultMaintenanceMessage = "The platform is under maintenance. Please try again later."

// MaintenanceGate rejects mutations from non-admin callers while maintenance mode is on.
// Reads and the listed route paths stay available.
func MaintenanceGate(database *gorm.DB, exempt ...string) echo.MiddlewareFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isMutating(c.Request().Method) || skip[c.Path()] {
				return next(c)
			}
			if actor, ok := GetActor(c); ok && actor.Role == models.RoleAdmin {
				return next(c)
			}

			settings, err := services.GetSettings(database)
			if err != nil {
				log.Warnf("[MAINTENANCE] Could not load settings: %v", err)
				return next(c)
			}
			if !settings.MaintenanceMode {
				return next(c)
			}

			message := settings.MaintenanceMessage
			if message == "" {
				message = defaultMaintenanceMessage
			}
			return echo.NewHTTPError(http.StatusServiceUnavailable, message)
		}
	}
}
