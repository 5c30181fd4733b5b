package handlers

import (
	"context"
	"net/http"
	"time"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const stationFeedBuffer = 64

type sosRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Message   string   `json:"message" validate:"max=1000"`
}

// SOSHandler routes a citizen's distress signal to the nearest station
func SOSHandler(c echo.Context) error {
	var req sosRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	alert, err := services.DispatchSOS(c.Request().Context(), db.DB, services.Realtime, services.Audit, actorFrom(c), services.SOSInput{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Message:   req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, alert)
}

// AcknowledgeSOSHandler marks an alert as taken by an officer
func AcknowledgeSOSHandler(c echo.Context) error {
	alert, err := services.AcknowledgeSOS(c.Request().Context(), db.DB, services.Realtime, services.Audit, actorFrom(c), c.Param("alertId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

// ListStationAlertsHandler lists the alerts routed to a station
func ListStationAlertsHandler(c echo.Context) error {
	alerts, err := services.ListStationAlerts(db.DB, actorFrom(c), c.Param("id"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alerts)
}

// StationFeedHandler upgrades to a websocket and streams a station's live events
func StationFeedHandler(c echo.Context) error {
	stationID := c.Param("id")
	if err := services.AuthorizeStationRoom(actorFrom(c), stationID); err != nil {
		return err
	}
	if services.Realtime == nil {
		return services.Internal("live feed is not running", nil)
	}

	opts := &websocket.AcceptOptions{}
	if cfg := getConfig(c); len(cfg.AllowedOrigins) > 0 && cfg.AllowedOrigins[0] != "*" {
		opts.OriginPatterns = cfg.AllowedOrigins
	} else {
		opts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(c.Response(), c.Request(), opts)
	if err != nil {
		// Accept has already written the HTTP error
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sub := services.Realtime.Join(stationID, stationFeedBuffer)
	defer services.Realtime.Leave(sub)
	log.Printf("[REALTIME] Station %s: listener joined (%d connected)", stationID, services.Realtime.RoomSize(stationID))

	_ = wsjson.Write(ctx, conn, services.NewEvent("ready", map[string]string{"station_id": stationID}))

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return nil
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return nil
		case evt, ok := <-sub.C:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return nil
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return nil
			}
		}
	}
}
