package handlers

import (
	"net/http"

	"justice_flow_go/db"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports whether the database answers
func HealthHandler(c echo.Context) error {
	status := map[string]string{"status": "ok", "database": "ok"}
	if err := db.Ping(c.Request().Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
