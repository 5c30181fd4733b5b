package middleware

import (
	"fmt"
	"net/http"
	"time"

	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// AuditRequest logs every mutating request with its outcome.
// Requests rejected before reaching a service (unauthenticated or rate limited) are
// also appended to the audit chain, since no service call records them.
func AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isMutating(c.Request().Method) {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = HTTPStatus(err)
			}
			actor := RequestActor(c)

			log.WithFields(log.Fields{
				"method":   actor.Method,
				"endpoint": actor.Endpoint,
				"ip":       actor.IPAddress,
				"actor":    actor.ID,
				"status":   status,
				"duration": time.Since(start).String(),
			}).Info("[REQUEST]")

			if status == http.StatusUnauthorized || status == http.StatusTooManyRequests {
				services.Audit.LogActivity(c.Request().Context(), actor, services.AuditEvent{
					Action:       "request.rejected",
					ResourceType: "Route",
					ResourceID:   actor.Endpoint,
					Severity:     models.AuditSeverityWarning,
					Status:       models.AuditStatusDenied,
					Details:      fmt.Sprintf("status=%d", status),
				})
			}
			return err
		}
	}
}
