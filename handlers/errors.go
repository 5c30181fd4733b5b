package handlers

import (
	"errors"
	"net/http"

	"justice_flow_go/config"
	"justice_flow_go/middleware"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error kind and a caller-facing message
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(services.KindNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(services.KindValidation)
	case http.StatusForbidden:
		return string(services.KindForbidden)
	case http.StatusConflict:
		return string(services.KindConflict)
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "maintenance"
	}
	return string(services.KindInternal)
}

// HTTPErrorHandler renders service and echo errors as structured JSON.
// Internal details are only exposed in development.
func HTTPErrorHandler(cfg *config.Config) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := middleware.HTTPStatus(err)
		body := ErrorBody{Error: ErrorDetail{Kind: kindForStatus(status), Message: http.StatusText(status)}}

		var appErr *services.AppError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			body.Error.Kind = string(appErr.Kind)
			body.Error.Message = appErr.Message
			if appErr.Kind == services.KindInternal {
				log.WithFields(log.Fields{"path": c.Path(), "method": c.Request().Method}).Errorf("[ERROR] %v", err)
				if !cfg.IsDevelopment() {
					body.Error.Message = "internal error"
				} else {
					body.Error.Message = appErr.Error()
				}
			}
		case errors.As(err, &he):
			if msg, ok := he.Message.(string); ok {
				body.Error.Message = msg
			}
		case status != http.StatusInternalServerError:
			body.Error.Message = err.Error()
		default:
			log.WithFields(log.Fields{"path": c.Path(), "method": c.Request().Method}).Errorf("[ERROR] %v", err)
			if cfg.IsDevelopment() {
				body.Error.Message = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Errorf("[ERROR] failed to write error response: %v", err)
		}
	}
}
