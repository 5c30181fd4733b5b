package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"justice_flow_go/config"
	"justice_flow_go/middleware"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusOf(err error) int {
	return middleware.HTTPStatus(err)
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		err         error
		wantStatus  int
		wantKind    string
		wantMessage string
	}{
		{"not found", "production", services.NotFound("case not found"), http.StatusNotFound, "not_found", "case not found"},
		{"conflict", "production", services.Conflict("stale version"), http.StatusConflict, "conflict", "stale version"},
		{"forbidden", "production", services.Forbidden("nope"), http.StatusForbidden, "forbidden", "nope"},
		{"internal hidden in production", "production", services.Internal("db exploded", errors.New("disk full")), http.StatusInternalServerError, "internal", "internal error"},
		{"echo error", "production", echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), http.StatusMethodNotAllowed, "internal", "method not allowed"},
		{"bad credentials", "production", services.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized", services.ErrInvalidCredentials.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c, rec := setupEcho(http.MethodGet, "/", nil)
			HTTPErrorHandler(&config.Config{Environment: tt.env})(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
		})
	}

	t.Run("internal detail shown in development", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/", nil)
		HTTPErrorHandler(&config.Config{Environment: "development"})(services.Internal("db exploded", errors.New("disk full")), c)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "disk full")
	})
}
