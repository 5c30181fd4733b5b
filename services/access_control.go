package services

import (
	"errors"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// Authorize permits the actor only when its role is one of roles
func Authorize(actor Actor, roles ...string) error {
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return Forbidden("role %q is not allowed to perform this action", actor.Role)
}

// IsAssigned reports whether an Assignment binds the user to the case
func IsAssigned(db *gorm.DB, caseID, userID string) (bool, error) {
	var count int64
	err := db.Model(&models.Assignment{}).
		Where("case_id = ? AND user_id = ?", caseID, userID).
		Count(&count).Error
	if err != nil {
		return false, Internal("failed to check case assignment", err)
	}
	return count > 0, nil
}

// EnsureCaseAccess loads a case the actor may work on.
// Admins always pass, citizens never reach professional case resources,
// everyone else needs an Assignment on the case.
func EnsureCaseAccess(db *gorm.DB, actor Actor, caseID string) (*models.Case, error) {
	var caseRecord models.Case
	if err := db.First(&caseRecord, "id = ?", caseID).Error; err != nil {
		return nil, notFoundOr(err, "case")
	}

	if actor.IsAdmin() {
		return &caseRecord, nil
	}
	if actor.Role == models.RoleCitizen || actor.ID == "" {
		return nil, Forbidden("citizens cannot access professional case resources")
	}

	assigned, err := IsAssigned(db, caseID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, Forbidden("user is not assigned to case %s", caseRecord.Reference)
	}
	return &caseRecord, nil
}

// EnsureComplaintAccess loads a complaint the actor may see: its citizen owner,
// the police station it was filed with, magistrates and admins
func EnsureComplaintAccess(db *gorm.DB, actor Actor, complaintID string) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := db.First(&complaint, "id = ?", complaintID).Error; err != nil {
		return nil, notFoundOr(err, "complaint")
	}
	if CanSeeComplaint(actor, &complaint) {
		return &complaint, nil
	}
	return nil, Forbidden("complaint %s is not accessible", complaint.TrackingCode)
}

// CanSeeComplaint applies the complaint visibility rules without touching the store
func CanSeeComplaint(actor Actor, complaint *models.Complaint) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleProsecutor, models.RoleJudge:
		return true
	case models.RoleCitizen:
		return actor.ID != "" && complaint.CitizenID == actor.ID
	case models.RolePolice:
		return complaint.PoliceStationID != nil && actor.PoliceStationID != "" &&
			*complaint.PoliceStationID == actor.PoliceStationID
	}
	return false
}

// ScopeComplaints restricts a complaint query to what the actor may list
func ScopeComplaints(db *gorm.DB, actor Actor) *gorm.DB {
	switch actor.Role {
	case models.RoleAdmin, models.RoleProsecutor, models.RoleJudge:
		return db
	case models.RoleCitizen:
		return db.Where("citizen_id = ?", actor.ID)
	case models.RolePolice:
		if actor.PoliceStationID == "" {
			return db.Where("1 = 0")
		}
		return db.Where("police_station_id = ?", actor.PoliceStationID)
	}
	return db.Where("1 = 0")
}

// ScopeCases restricts a case query to the actor's assignments unless admin
func ScopeCases(db *gorm.DB, actor Actor) *gorm.DB {
	if actor.IsAdmin() {
		return db
	}
	if actor.Role == models.RoleCitizen || actor.ID == "" {
		return db.Where("1 = 0")
	}
	return db.Where("EXISTS (SELECT 1 FROM assignments WHERE assignments.case_id = cases.id AND assignments.user_id = ?)", actor.ID)
}

// ensureAssignment creates the (case, user, role) binding unless it already exists
func ensureAssignment(tx *gorm.DB, caseID, userID, role string, assignedBy string) error {
	var existing models.Assignment
	err := tx.Where("case_id = ? AND user_id = ? AND role = ?", caseID, userID, role).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Internal("failed to look up assignment", err)
	}

	assignment := models.Assignment{CaseID: caseID, UserID: userID, Role: role}
	if assignedBy != "" {
		assignment.AssignedBy = &assignedBy
	}
	if err := tx.Create(&assignment).Error; err != nil {
		return Internal("failed to create assignment", err)
	}
	return nil
}
