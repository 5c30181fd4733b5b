package services

import (
	"context"
	"testing"

	"justice_flow_go/config"
	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationDispatcher(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	dispatcher := &NotificationDispatcher{DB: db, Cfg: &config.Config{EmailTestMode: true}}
	ctx := context.Background()

	dispatcher.Notify(ctx, Notice{
		UserID:       fx.Citizen.ID,
		Type:         models.NotificationTypeComplaintUpdate,
		Title:        "Filed",
		Message:      "ok",
		ResourceType: "Complaint",
		ResourceID:   "c0ffee00-0000-0000-0000-000000000001",
		Email:        true,
	})
	dispatcher.Notify(ctx, Notice{UserID: fx.Judge.ID, Type: models.NotificationTypeCaseUpdate, Title: "In-app only"})
	dispatcher.Notify(ctx, Notice{UserID: "", Title: "dropped"})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var citizenNotice models.Notification
	require.NoError(t, db.First(&citizenNotice, "user_id = ?", fx.Citizen.ID).Error)
	assert.Equal(t, "Complaint", citizenNotice.ResourceType)
	assert.True(t, citizenNotice.Emailed)
	assert.Nil(t, citizenNotice.ReadAt)

	var judgeNotice models.Notification
	require.NoError(t, db.First(&judgeNotice, "user_id = ?", fx.Judge.ID).Error)
	assert.False(t, judgeNotice.Emailed)
}

func TestNoticeLink(t *testing.T) {
	cfg := &config.Config{AppURL: "https://justice.example/"}
	assert.Equal(t, "https://justice.example/complaints/abc", Notice{ResourceType: "Complaint", ResourceID: "abc"}.link(cfg))
	assert.Equal(t, "https://justice.example/cases/abc", Notice{ResourceType: "Case", ResourceID: "abc"}.link(cfg))
	assert.Empty(t, Notice{ResourceType: "Case"}.link(cfg))
	assert.Empty(t, Notice{ResourceType: "Decision", ResourceID: "abc"}.link(cfg))
	assert.Empty(t, Notice{ResourceType: "Case", ResourceID: "abc"}.link(&config.Config{}))
}

func TestNotificationService(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	dispatcher := &NotificationDispatcher{DB: db, Cfg: &config.Config{EmailTestMode: true}}
	svc := NewNotificationService(db)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		dispatcher.Notify(ctx, Notice{UserID: fx.Judge.ID, Type: models.NotificationTypeCaseUpdate, Title: title, Message: title})
	}
	dispatcher.Notify(ctx, Notice{UserID: fx.Clerk.ID, Type: models.NotificationTypeCaseUpdate, Title: "other", Message: "other"})

	t.Run("Unread count", func(t *testing.T) {
		count, err := svc.UnreadCount(fx.Judge.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("Mark one as read", func(t *testing.T) {
		list, err := svc.List(fx.Judge.ID, true, 10)
		require.NoError(t, err)
		require.Len(t, list, 3)

		require.NoError(t, svc.MarkAsRead(list[0].ID, fx.Judge.ID))
		count, _ := svc.UnreadCount(fx.Judge.ID)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Cannot mark another user's notification", func(t *testing.T) {
		list, err := svc.List(fx.Clerk.ID, false, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		err = svc.MarkAsRead(list[0].ID, fx.Judge.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Mark all as read", func(t *testing.T) {
		require.NoError(t, svc.MarkAllAsRead(fx.Judge.ID))
		count, _ := svc.UnreadCount(fx.Judge.ID)
		assert.Zero(t, count)

		clerkCount, _ := svc.UnreadCount(fx.Clerk.ID)
		assert.Equal(t, int64(1), clerkCount)
	})
}
