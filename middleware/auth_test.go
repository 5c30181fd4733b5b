package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"justice_flow_go/config"
	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open("file:mw_"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))

	services.Audit = services.NewAuditor(testDB)
	t.Cleanup(func() { services.Audit = nil })
	return testDB
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "access-secret-for-tests-0123456789abcdef",
		JWTRefreshSecret:      "refresh-secret-for-tests-0123456789abcdef",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  24,
	}
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	u := &models.User{Name: role, Email: role + "-" + uuid.New().String()[:8] + "@justice.test", Password: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestRequireAuth(t *testing.T) {
	testDB := setupTestDB(t)
	cfg := testConfig()
	e := echo.New()

	user := createUser(t, testDB, models.RoleProsecutor)
	tokens, err := services.IssueTokens(testDB, cfg, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	handler := RequireAuth(cfg, testDB)(func(c echo.Context) error {
		actor, ok := GetActor(c)
		require.True(t, ok)
		return c.String(http.StatusOK, actor.ID+"|"+actor.Role+"|"+actor.Method)
	})

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cases", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokens.AccessToken)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler(c))
		assert.Equal(t, user.ID+"|prosecutor|POST", rec.Body.String())
	})

	t.Run("MissingToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		err := handler(c)
		assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
	})

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokens.RefreshToken)
		c := e.NewContext(req, httptest.NewRecorder())
		err := handler(c)
		assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
	})

	t.Run("DeactivatedAccount", func(t *testing.T) {
		require.NoError(t, testDB.Model(user).Update("is_active", false).Error)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokens.AccessToken)
		c := e.NewContext(req, httptest.NewRecorder())
		err := handler(c)
		assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
	})
}

func TestRequireRoleAuditsDenial(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()

	handler := RequireRole(models.RoleJudge)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/decisions/:id/sign")
	c.Set(ContextKeyActor, services.Actor{ID: uuid.New().String(), Role: models.RoleClerk})

	err := handler(c)
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))

	var entry models.AuditLog
	require.NoError(t, testDB.Where("action = ?", "route.access").First(&entry).Error)
	assert.Equal(t, models.AuditStatusDenied, entry.Status)
	assert.Equal(t, models.AuditSeverityWarning, entry.Severity)
	assert.Equal(t, "/api/decisions/:id/sign", entry.ResourceID)

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.Set(ContextKeyActor, services.Actor{ID: uuid.New().String(), Role: models.RoleJudge})
	assert.NoError(t, handler(c))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(services.NotFound("case not found")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(services.Validation("bad")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(services.Conflict("stale")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(services.ErrInvalidCredentials))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(services.ErrAccountLocked))
	assert.Equal(t, http.StatusTeapot, HTTPStatus(echo.NewHTTPError(http.StatusTeapot)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(services.Internal("boom", nil)))
}
