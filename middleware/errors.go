package middleware

import (
	"errors"
	"net/http"

	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

// HTTPStatus maps an error returned by a handler or a service to its response status
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrAccountLocked):
		return http.StatusTooManyRequests
	}
	switch services.KindOf(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
