package handlers

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"justice_flow_go/config"
	"justice_flow_go/db"
	"justice_flow_go/middleware"
	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))

	db.DB = testDB
	services.Audit = services.NewAuditor(testDB)
	services.Notifications = services.InitNotifications(testDB, testConfig())
	services.InitSecurityMonitor()
	services.InitRealtime()
	if services.Storage == nil {
		services.Storage = services.NewLocalStorage(t.TempDir())
	}

	t.Cleanup(func() {
		if sqlDB, err := testDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return testDB
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:           "test",
		JWTSecret:             "handler-test-access-secret-0123456789",
		JWTRefreshSecret:      "handler-test-refresh-secret-0123456789",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  24,
		EmailTestMode:         true,
		AppURL:                "http://localhost:8080",
	}
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("config", testConfig())
	return e, c, rec
}

func asActor(c echo.Context, u *models.User) {
	c.Set(middleware.ContextKeyActor, services.ActorFromUser(u))
}

type handlerFixtures struct {
	Court   *models.Court
	Station *models.PoliceStation
	Prison  *models.Prison

	Citizen    *models.User
	Police     *models.User
	Prosecutor *models.User
	Judge      *models.User
	Admin      *models.User
}

func createUser(t *testing.T, database *gorm.DB, role string, setup func(u *models.User)) *models.User {
	t.Helper()
	hash, err := services.HashPassword("Sup3r$ecret!")
	require.NoError(t, err)
	u := &models.User{
		Name:     role + " user",
		Email:    fmt.Sprintf("%s-%s@justice.test", role, uuid.New().String()[:8]),
		Password: hash,
		Role:     role,
	}
	if setup != nil {
		setup(u)
	}
	require.NoError(t, database.Create(u).Error)
	return u
}

func seedHandlerFixtures(t *testing.T, database *gorm.DB) *handlerFixtures {
	t.Helper()
	fx := &handlerFixtures{
		Court:   &models.Court{Name: "Tribunal de Première Instance", City: "Douala"},
		Station: &models.PoliceStation{Name: "Commissariat du 1er", City: "Douala", Latitude: 4.0511, Longitude: 9.7679},
		Prison:  &models.Prison{Name: "Prison de New-Bell", City: "Douala", Capacity: 10},
	}
	require.NoError(t, database.Create(fx.Court).Error)
	require.NoError(t, database.Create(fx.Station).Error)
	require.NoError(t, database.Create(fx.Prison).Error)

	fx.Citizen = createUser(t, database, models.RoleCitizen, nil)
	fx.Police = createUser(t, database, models.RolePolice, func(u *models.User) { u.PoliceStationID = &fx.Station.ID })
	fx.Prosecutor = createUser(t, database, models.RoleProsecutor, func(u *models.User) { u.CourtID = &fx.Court.ID })
	fx.Judge = createUser(t, database, models.RoleJudge, func(u *models.User) { u.CourtID = &fx.Court.ID })
	fx.Admin = createUser(t, database, models.RoleAdmin, nil)
	return fx
}
