package handlers

import (
	"net/http"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

// ListNotificationsHandler returns the caller's notifications, newest first
func ListNotificationsHandler(c echo.Context) error {
	actor := actorFrom(c)
	service := services.NewNotificationService(db.DB)
	notifications, err := service.List(actor.ID, c.QueryParam("unread") == "true", queryInt(c, "limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notifications)
}

// UnreadCountHandler returns how many notifications the caller has not read
func UnreadCountHandler(c echo.Context) error {
	count, err := services.NewNotificationService(db.DB).UnreadCount(actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}

// MarkNotificationReadHandler marks one of the caller's notifications as read
func MarkNotificationReadHandler(c echo.Context) error {
	if err := services.NewNotificationService(db.DB).MarkAsRead(c.Param("id"), actorFrom(c).ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllNotificationsReadHandler marks every notification of the caller as read
func MarkAllNotificationsReadHandler(c echo.Context) error {
	if err := services.NewNotificationService(db.DB).MarkAllAsRead(actorFrom(c).ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
