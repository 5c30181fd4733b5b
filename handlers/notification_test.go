package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHandlers(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)

	mine := []*models.Notification{
		{UserID: fx.Citizen.ID, Type: models.NotificationTypeComplaintUpdate, Title: "Complaint registered"},
		{UserID: fx.Citizen.ID, Type: models.NotificationTypeComplaintUpdate, Title: "Complaint received"},
	}
	for _, n := range mine {
		require.NoError(t, database.Create(n).Error)
	}
	theirs := &models.Notification{UserID: fx.Judge.ID, Type: models.NotificationTypeCaseUpdate, Title: "New case"}
	require.NoError(t, database.Create(theirs).Error)

	unread := func() int64 {
		_, c, rec := setupEcho(http.MethodGet, "/api/notifications/unread-count", nil)
		asActor(c, fx.Citizen)
		require.NoError(t, UnreadCountHandler(c))
		var body map[string]int64
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body["unread"]
	}

	t.Run("lists only the caller's notifications", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/notifications", nil)
		asActor(c, fx.Citizen)
		require.NoError(t, ListNotificationsHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var list []models.Notification
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, 2)
		assert.Equal(t, int64(2), unread())
	})

	t.Run("marks one as read", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/", nil)
		c.SetParamNames("id")
		c.SetParamValues(mine[0].ID)
		asActor(c, fx.Citizen)
		require.NoError(t, MarkNotificationReadHandler(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(1), unread())
	})

	t.Run("cannot touch another user's notification", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodPost, "/", nil)
		c.SetParamNames("id")
		c.SetParamValues(theirs.ID)
		asActor(c, fx.Citizen)
		assert.Equal(t, http.StatusNotFound, statusOf(MarkNotificationReadHandler(c)))
	})

	t.Run("marks all as read", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/", nil)
		asActor(c, fx.Citizen)
		require.NoError(t, MarkAllNotificationsReadHandler(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, unread())

		var judgeNotice models.Notification
		require.NoError(t, database.First(&judgeNotice, "id = ?", theirs.ID).Error)
		assert.Nil(t, judgeNotice.ReadAt)
	})
}
