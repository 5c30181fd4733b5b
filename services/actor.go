package services

import (
	"justice_flow_go/models"
)

// Actor is the authenticated caller of an operation, plus the request metadata
// the audit trail needs
type Actor struct {
	ID              string
	Name            string
	Role            string
	CourtID         string
	PoliceStationID string
	PrisonID        string

	IPAddress string
	UserAgent string
	Method    string
	Endpoint  string
}

// ActorFromUser builds an actor from a stored user
func ActorFromUser(u *models.User) Actor {
	a := Actor{ID: u.ID, Name: u.Name, Role: u.Role}
	if u.CourtID != nil {
		a.CourtID = *u.CourtID
	}
	if u.PoliceStationID != nil {
		a.PoliceStationID = *u.PoliceStationID
	}
	if u.PrisonID != nil {
		a.PrisonID = *u.PrisonID
	}
	return a
}

// SystemActor is used by scheduled jobs
func SystemActor() Actor {
	return Actor{Name: "system", Role: models.RoleAdmin, Method: "CRON"}
}

// Organization returns the court, station or prison the actor acts for
func (a Actor) Organization() string {
	switch {
	case a.CourtID != "":
		return "court:" + a.CourtID
	case a.PoliceStationID != "":
		return "station:" + a.PoliceStationID
	case a.PrisonID != "":
		return "prison:" + a.PrisonID
	}
	return ""
}

// IsAdmin reports whether the actor bypasses assignment checks
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) idPtr() *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
