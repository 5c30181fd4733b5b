package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"justice_flow_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbName := "mem_" + uuid.New().String()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixtures struct {
	Court   *models.Court
	Station *models.PoliceStation
	Prison  *models.Prison

	Citizen       *models.User
	Police        *models.User
	Prosecutor    *models.User
	Judge         *models.User
	Clerk         *models.User
	Bailiff       *models.User
	PrisonOfficer *models.User
	Admin         *models.User
}

func createTestUser(t *testing.T, db *gorm.DB, role string, setup func(u *models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Name:     role + " user",
		Email:    fmt.Sprintf("%s-%s@justice.test", role, uuid.New().String()[:8]),
		Password: "$2a$10$placeholderhashplaceholderhashplaceholderhash",
		Role:     role,
	}
	if setup != nil {
		setup(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedFixtures(t *testing.T, db *gorm.DB) *fixtures {
	t.Helper()
	fx := &fixtures{
		Court:   &models.Court{Name: "Tribunal de Grande Instance", City: "Yaoundé"},
		Station: &models.PoliceStation{Name: "Commissariat Central", City: "Yaoundé", Latitude: 3.8667, Longitude: 11.5167},
		Prison:  &models.Prison{Name: "Prison Centrale", City: "Yaoundé", Capacity: 2},
	}
	require.NoError(t, db.Create(fx.Court).Error)
	require.NoError(t, db.Create(fx.Station).Error)
	require.NoError(t, db.Create(fx.Prison).Error)

	fx.Citizen = createTestUser(t, db, models.RoleCitizen, nil)
	fx.Police = createTestUser(t, db, models.RolePolice, func(u *models.User) { u.PoliceStationID = &fx.Station.ID })
	fx.Prosecutor = createTestUser(t, db, models.RoleProsecutor, func(u *models.User) { u.CourtID = &fx.Court.ID })
	fx.Judge = createTestUser(t, db, models.RoleJudge, func(u *models.User) { u.CourtID = &fx.Court.ID })
	fx.Clerk = createTestUser(t, db, models.RoleClerk, func(u *models.User) { u.CourtID = &fx.Court.ID })
	fx.Bailiff = createTestUser(t, db, models.RoleBailiff, nil)
	fx.PrisonOfficer = createTestUser(t, db, models.RolePrisonOfficer, func(u *models.User) { u.PrisonID = &fx.Prison.ID })
	fx.Admin = createTestUser(t, db, models.RoleAdmin, nil)
	return fx
}

// complaint inserts a complaint directly in the given status, bypassing the workflow
func (fx *fixtures) complaint(t *testing.T, db *gorm.DB, status string) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		CitizenID:          fx.Citizen.ID,
		PoliceStationID:    &fx.Station.ID,
		Description:        "Bicycle stolen in front of the market",
		ProvisionalOffence: "theft",
		Status:             status,
		TrackingCode:       "PL-TEST-" + uuid.New().String()[:8],
		VerificationToken:  uuid.New().String(),
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) For(userID string) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func newTestWorkflow(db *gorm.DB) (*Workflow, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewWorkflow(db, NewAuditor(db), notifier), notifier
}
