package middleware

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/labstack/echo/v4"
)

const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// GenerateRequestID creates a random identifier for correlating logs and audit rows
func GenerateRequestID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// SecurityHeaders sets the response headers every API reply carries and tags
// the request with an ID unless the proxy already supplied one
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				var err error
				id, err = GenerateRequestID()
				if err != nil {
					c.Logger().Errorf("Failed to generate request id: %v", err)
				}
			}

			h := c.Response().Header()
			if id != "" {
				h.Set(echo.HeaderXRequestID, id)
			}
			h.Set(echo.HeaderContentSecurityPolicy, apiContentSecurityPolicy)
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
