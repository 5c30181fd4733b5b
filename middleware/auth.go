package middleware

import (
	"net/http"
	"strings"

	"justice_flow_go/config"
	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// ContextKeyActor is the context key for the authenticated actor
	ContextKeyActor = "actor"
	// ContextKeyClaims is the context key for the parsed access token claims
	ContextKeyClaims = "claims"
)

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	// Browsers cannot set headers on websocket upgrades
	if c.IsWebSocket() {
		return c.QueryParam("access_token")
	}
	return ""
}

// RequireAuth validates the bearer access token and stores the caller's actor in the context.
// Deactivated accounts are rejected even while their token is still valid.
func RequireAuth(cfg *config.Config, database *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := services.ParseAccessToken(cfg, token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			var user models.User
			if err := database.Select("id", "is_active").First(&user, "id = ?", claims.Subject).Error; err != nil || !user.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "account is not active")
			}

			actor := claims.Actor()
			actor.IPAddress = c.RealIP()
			actor.UserAgent = c.Request().UserAgent()
			actor.Method = c.Request().Method
			actor.Endpoint = c.Path()

			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyActor, actor)
			return next(c)
		}
	}
}

// RequireRole rejects callers whose role is not listed. Rejections are audited as denied.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := GetActor(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			if err := services.Authorize(actor, roles...); err != nil {
				services.Audit.Record(c.Request().Context(), actor, "route.access", "Route", c.Path(), models.AuditSeverityWarning, err)
				return err
			}
			return next(c)
		}
	}
}

// GetActor retrieves the authenticated actor from the context
func GetActor(c echo.Context) (services.Actor, bool) {
	actor, ok := c.Get(ContextKeyActor).(services.Actor)
	return actor, ok
}

// RequestActor returns the authenticated actor, or an anonymous actor carrying
// only the request metadata
func RequestActor(c echo.Context) services.Actor {
	if actor, ok := GetActor(c); ok {
		return actor
	}
	return services.Actor{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Method:    c.Request().Method,
		Endpoint:  c.Path(),
	}
}
