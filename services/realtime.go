package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"justice_flow_go/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Event is a message pushed to the sockets of a station room
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, At: time.Now().UTC()}
}

// Subscription receives the events of one station room
type Subscription struct {
	C         <-chan Event
	ch        chan Event
	stationID string
}

// Hub fans events out to per-station rooms
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}
}

// Realtime is the process-wide hub used by the SOS dispatcher and the websocket handler
var Realtime *Hub

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscription]struct{})}
}

// InitRealtime sets the global hub
func InitRealtime() *Hub {
	Realtime = NewHub()
	return Realtime
}

// Join subscribes to a station room. buffer bounds how far a slow socket may lag.
func (h *Hub) Join(stationID string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch, stationID: stationID}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[stationID]
	if !ok {
		room = make(map[*Subscription]struct{})
		h.rooms[stationID] = room
	}
	room[sub] = struct{}{}
	return sub
}

// Leave removes the subscription and closes its channel
func (h *Hub) Leave(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sub.stationID]
	if !ok {
		return
	}
	if _, ok := room[sub]; !ok {
		return
	}
	delete(room, sub)
	close(sub.ch)
	if len(room) == 0 {
		delete(h.rooms, sub.stationID)
	}
}

// Broadcast delivers the event to every socket in the room and returns how many received it.
// Subscribers whose buffer is full miss the event.
func (h *Hub) Broadcast(stationID string, evt Event) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.rooms[stationID] {
		select {
		case sub.ch <- evt:
			delivered++
		default:
			log.WithField("station_id", stationID).Warn("[REALTIME] dropping event for slow subscriber")
		}
	}
	return delivered
}

// RoomSize returns the number of sockets joined to a station room
func (h *Hub) RoomSize(stationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[stationID])
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NearestStation returns the police station closest to the coordinates
func NearestStation(db *gorm.DB, lat, lng float64) (*models.PoliceStation, float64, error) {
	var stations []models.PoliceStation
	if err := db.Find(&stations).Error; err != nil {
		return nil, 0, Internal("failed to load police stations", err)
	}
	if len(stations) == 0 {
		return nil, 0, NotFound("no police station is registered")
	}

	best := -1
	bestDistance := math.MaxFloat64
	for i, s := range stations {
		d := HaversineKm(lat, lng, s.Latitude, s.Longitude)
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return &stations[best], bestDistance, nil
}

// SOSInput is a distress signal from a citizen's device
type SOSInput struct {
	Latitude  float64
	Longitude float64
	Message   string
}

// DispatchSOS stores the alert, routes it to the nearest station and pushes it to that station's room
func DispatchSOS(ctx context.Context, db *gorm.DB, hub *Hub, auditor *Auditor, actor Actor, input SOSInput) (*models.SOSAlert, error) {
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, Validation("coordinates are out of range")
	}

	station, distance, err := NearestStation(db.WithContext(ctx), input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	alert := &models.SOSAlert{
		CitizenID:  actor.idPtr(),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		Message:    SanitizeText(input.Message),
		StationID:  station.ID,
		DistanceKm: math.Round(distance*100) / 100,
	}
	if err := db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, Internal("failed to store SOS alert", err)
	}

	delivered := hub.Broadcast(station.ID, NewEvent("sos_alert", alert))
	sosDispatched.Inc()

	auditor.LogActivity(ctx, actor, AuditEvent{
		Action:       "sos.dispatch",
		ResourceType: "SOSAlert",
		ResourceID:   alert.ID,
		Severity:     models.AuditSeverityHigh,
		Details:      fmt.Sprintf("station=%s distance_km=%.2f delivered=%d", station.ID, alert.DistanceKm, delivered),
	})
	log.WithFields(log.Fields{
		"alert_id":   alert.ID,
		"station_id": station.ID,
		"delivered":  delivered,
	}).Info("[SOS] alert dispatched")
	return alert, nil
}

// AcknowledgeSOS marks an open alert as taken in charge by the station
func AcknowledgeSOS(ctx context.Context, db *gorm.DB, hub *Hub, auditor *Auditor, actor Actor, alertID string) (*models.SOSAlert, error) {
	if err := Authorize(actor, models.RolePolice, models.RoleAdmin); err != nil {
		auditor.Record(ctx, actor, "sos.acknowledge", "SOSAlert", alertID, models.AuditSeverityWarning, err)
		return nil, err
	}

	var alert models.SOSAlert
	if err := db.WithContext(ctx).First(&alert, "id = ?", alertID).Error; err != nil {
		return nil, notFoundOr(err, "SOS alert")
	}
	if actor.Role == models.RolePolice && actor.PoliceStationID != alert.StationID {
		err := Forbidden("alert was routed to another station")
		auditor.Record(ctx, actor, "sos.acknowledge", "SOSAlert", alertID, models.AuditSeverityWarning, err)
		return nil, err
	}

	now := time.Now()
	result := db.WithContext(ctx).Model(&models.SOSAlert{}).
		Where("id = ? AND status = ?", alert.ID, models.SOSStatusOpen).
		Updates(map[string]interface{}{
			"status":          models.SOSStatusAcknowledged,
			"acknowledged_by": actor.idPtr(),
			"acknowledged_at": now,
		})
	if result.Error != nil {
		return nil, Internal("failed to acknowledge SOS alert", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, Conflict("SOS alert is already %s", alert.Status)
	}
	alert.Status = models.SOSStatusAcknowledged
	alert.AcknowledgedBy = actor.idPtr()
	alert.AcknowledgedAt = &now

	hub.Broadcast(alert.StationID, NewEvent("sos_acknowledged", alert))
	auditor.Record(ctx, actor, "sos.acknowledge", "SOSAlert", alert.ID, models.AuditSeverityInfo, nil)
	return &alert, nil
}

// ListStationAlerts returns the alerts routed to a station, newest first
func ListStationAlerts(db *gorm.DB, actor Actor, stationID, status string) ([]models.SOSAlert, error) {
	if err := Authorize(actor, models.RolePolice, models.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.Role == models.RolePolice && actor.PoliceStationID != stationID {
		return nil, Forbidden("alerts belong to another station")
	}
	query := db.Where("station_id = ?", stationID)
	if status != "" {
		query = query.Where("status = ?", models.NormalizeStatus(status))
	}
	var alerts []models.SOSAlert
	if err := query.Order("created_at DESC").Limit(200).Find(&alerts).Error; err != nil {
		return nil, Internal("failed to list SOS alerts", err)
	}
	return alerts, nil
}

// AuthorizeStationRoom checks that the actor may follow a station's live feed
func AuthorizeStationRoom(actor Actor, stationID string) error {
	if err := Authorize(actor, models.RolePolice, models.RoleAdmin); err != nil {
		return err
	}
	if actor.Role == models.RolePolice && actor.PoliceStationID != stationID {
		return Forbidden("live feed belongs to another station")
	}
	return nil
}
