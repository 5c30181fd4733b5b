package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// FileComplaintInput is what a citizen, or police on their behalf, submits
type FileComplaintInput struct {
	CitizenID          string
	PoliceStationID    string
	Description        string
	ProvisionalOffence string
	Location           string
}

// FileComplaint registers a new complaint with fresh public identifiers
func (w *Workflow) FileComplaint(ctx context.Context, actor Actor, input FileComplaintInput) (*models.Complaint, error) {
	complaint, err := w.fileComplaint(ctx, actor, input)
	resourceID := ""
	if complaint != nil {
		resourceID = complaint.ID
	}
	if err := w.finish(ctx, actor, "complaint.file", "Complaint", resourceID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}

	w.notify(ctx, Notice{
		UserID:       complaint.CitizenID,
		Type:         models.NotificationTypeComplaintUpdate,
		Title:        "Complaint registered",
		Message:      fmt.Sprintf("Your complaint was registered under %s.", complaint.TrackingCode),
		ResourceType: "Complaint",
		ResourceID:   complaint.ID,
	})
	return complaint, nil
}

func (w *Workflow) fileComplaint(ctx context.Context, actor Actor, input FileComplaintInput) (*models.Complaint, error) {
	if err := Authorize(actor, models.RoleCitizen, models.RolePolice, models.RoleAdmin); err != nil {
		return nil, err
	}

	description := SanitizeText(input.Description)
	if description == "" {
		return nil, Validation("description is required")
	}

	complaint := &models.Complaint{
		Description:        description,
		ProvisionalOffence: SanitizeText(input.ProvisionalOffence),
		Location:           SanitizeText(input.Location),
		Status:             models.ComplaintStatusPending,
	}

	switch actor.Role {
	case models.RoleCitizen:
		complaint.CitizenID = actor.ID
	case models.RolePolice:
		if input.CitizenID == "" {
			return nil, Validation("citizen_id is required when police file a complaint")
		}
		complaint.CitizenID = input.CitizenID
		if actor.PoliceStationID != "" {
			station := actor.PoliceStationID
			complaint.PoliceStationID = &station
		}
		complaint.Status = models.ComplaintStatusReceived
	default:
		if input.CitizenID == "" {
			return nil, Validation("citizen_id is required")
		}
		complaint.CitizenID = input.CitizenID
	}
	if complaint.PoliceStationID == nil && input.PoliceStationID != "" {
		station := input.PoliceStationID
		complaint.PoliceStationID = &station
	}

	err := w.transaction(ctx, func(tx *gorm.DB) error {
		var citizen models.User
		if err := tx.First(&citizen, "id = ?", complaint.CitizenID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Validation("citizen %s does not exist", complaint.CitizenID)
			}
			return Internal("failed to load citizen", err)
		}
		if complaint.PoliceStationID != nil {
			var count int64
			if err := tx.Model(&models.PoliceStation{}).Where("id = ?", *complaint.PoliceStationID).Count(&count).Error; err != nil {
				return Internal("failed to check police station", err)
			}
			if count == 0 {
				return Validation("police station %s does not exist", *complaint.PoliceStationID)
			}
		}

		code, err := GenerateTrackingCode(tx)
		if err != nil {
			return err
		}
		token, err := GenerateVerificationToken(tx)
		if err != nil {
			return err
		}
		complaint.TrackingCode = code
		complaint.VerificationToken = token

		if err := tx.Create(complaint).Error; err != nil {
			return Internal("failed to create complaint", err)
		}
		return recordHistory(tx, actor, "Complaint", complaint.ID, "status", "", complaint.Status, "filed")
	})
	if err != nil {
		return nil, err
	}
	return complaint, nil
}

// TransitionComplaint moves a complaint along a legal FSM edge
func (w *Workflow) TransitionComplaint(ctx context.Context, actor Actor, complaintID, to, note string) (*models.Complaint, error) {
	to = models.NormalizeStatus(to)
	var complaint *models.Complaint

	err := w.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		complaint, err = EnsureComplaintAccess(tx, actor, complaintID)
		if err != nil {
			return err
		}
		if err := checkDirectTransition(complaint.Status, to, actor.Role); err != nil {
			return err
		}
		return setComplaintStatus(tx, actor, complaint, to, SanitizeText(note))
	})
	if err := w.finish(ctx, actor, "complaint.transition."+to, "Complaint", complaintID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}

	w.notifyComplaintStatus(ctx, complaint)
	return complaint, nil
}

// TransmitComplaint forwards a complaint from police to the prosecutor's office
func (w *Workflow) TransmitComplaint(ctx context.Context, actor Actor, complaintID, note string) (*models.Complaint, error) {
	return w.TransitionComplaint(ctx, actor, complaintID, models.ComplaintStatusTransmitted, note)
}

// UpdateStatus overwrites a complaint status without consulting the transition table.
// Only admins may use it, and every use is audited with high severity.
func (w *Workflow) UpdateStatus(ctx context.Context, actor Actor, complaintID, status, reason string) (*models.Complaint, error) {
	status = models.NormalizeStatus(status)
	var complaint models.Complaint

	err := func() error {
		if err := Authorize(actor, models.RoleAdmin); err != nil {
			return err
		}
		if !models.IsValidComplaintStatus(status) {
			return Validation("unknown complaint status %q", status)
		}
		if SanitizeText(reason) == "" {
			return Validation("a reason is required for a status override")
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			if err := tx.First(&complaint, "id = ?", complaintID).Error; err != nil {
				return notFoundOr(err, "complaint")
			}
			return setComplaintStatus(tx, actor, &complaint, status, "override: "+SanitizeText(reason))
		})
	}()
	if err := w.finish(ctx, actor, "complaint.status_override", "Complaint", complaintID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}

	w.notifyComplaintStatus(ctx, &complaint)
	return &complaint, nil
}

// AssignToJudge puts a complaint under instruction and binds the judge to its case,
// creating the case or moving the existing one to the instruction stage.
// A complaint already under instruction keeps its status and gains the new judge.
func (w *Workflow) AssignToJudge(ctx context.Context, actor Actor, complaintID, judgeID string) (*models.Case, error) {
	var caseRecord models.Case

	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RoleJudge, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			var complaint models.Complaint
			if err := tx.First(&complaint, "id = ?", complaintID).Error; err != nil {
				return notFoundOr(err, "complaint")
			}

			var judge models.User
			if err := tx.First(&judge, "id = ?", judgeID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return Validation("agent %s is not an authorized instruction judge", judgeID)
				}
				return Internal("failed to load judge", err)
			}
			if judge.Role != models.RoleJudge || !judge.IsActive {
				return Validation("agent %s is not an authorized instruction judge", judge.Name)
			}

			note := "assigned to judge " + judge.Name
			reassignment := models.NormalizeStatus(complaint.Status) == models.ComplaintStatusUnderInstruction
			if !reassignment {
				if err := CheckComplaintTransition(complaint.Status, models.ComplaintStatusUnderInstruction, actor.Role); err != nil {
					return err
				}
				if err := setComplaintStatus(tx, actor, &complaint, models.ComplaintStatusUnderInstruction, note); err != nil {
					return err
				}
			}

			err := tx.Where("complaint_id = ?", complaint.ID).First(&caseRecord).Error
			switch {
			case err == nil:
				if reassignment && models.CaseStageRank(caseRecord.Stage) >= models.CaseStageRank(models.CaseStageInstruction) {
					break
				}
				if err := setCaseState(tx, actor, &caseRecord, models.CaseStageInstruction, models.CaseStatusOpen, note); err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				reference, err := GenerateCaseReference(tx)
				if err != nil {
					return err
				}
				caseRecord = models.Case{
					ComplaintID: complaint.ID,
					Reference:   reference,
					CourtID:     judge.CourtID,
					Status:      models.CaseStatusOpen,
					Stage:       models.CaseStageInstruction,
					Priority:    models.CasePriorityNormal,
				}
				if err := tx.Create(&caseRecord).Error; err != nil {
					return Internal("failed to create case", err)
				}
				if err := recordHistory(tx, actor, "Case", caseRecord.ID, "stage", "", caseRecord.Stage, "opened for instruction"); err != nil {
					return err
				}
			default:
				return Internal("failed to look up case", err)
			}

			return ensureAssignment(tx, caseRecord.ID, judge.ID, models.AssignmentJudgeInstruction, actor.ID)
		})
	}()
	if err := w.finish(ctx, actor, "complaint.assign_judge", "Complaint", complaintID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}

	w.notify(ctx, Notice{
		UserID:       judgeID,
		Type:         models.NotificationTypeCaseUpdate,
		Title:        "New case under instruction",
		Message:      fmt.Sprintf("Case %s has been assigned to you for instruction.", caseRecord.Reference),
		ResourceType: "Case",
		ResourceID:   caseRecord.ID,
		Email:        true,
	})
	return &caseRecord, nil
}

// ProsecuteInput opens a case from a complaint
type ProsecuteInput struct {
	CourtID  string
	Priority string
}

// ProsecuteComplaint opens a case at the prosecution stage
func (w *Workflow) ProsecuteComplaint(ctx context.Context, actor Actor, complaintID string, input ProsecuteInput) (*models.Case, error) {
	var caseRecord *models.Case
	var citizenID string

	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			var err error
			caseRecord, citizenID, err = prosecuteTx(tx, actor, complaintID, input)
			return err
		})
	}()
	if err := w.finish(ctx, actor, "complaint.prosecute", "Complaint", complaintID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}

	w.notify(ctx, Notice{
		UserID:       citizenID,
		Type:         models.NotificationTypeComplaintUpdate,
		Title:        "Prosecution opened",
		Message:      fmt.Sprintf("A judicial case %s was opened from your complaint.", caseRecord.Reference),
		ResourceType: "Complaint",
		ResourceID:   complaintID,
	})
	return caseRecord, nil
}

func prosecuteTx(tx *gorm.DB, actor Actor, complaintID string, input ProsecuteInput) (*models.Case, string, error) {
	priority := models.NormalizeStatus(input.Priority)
	if priority == "" {
		priority = models.CasePriorityNormal
	}
	if !models.IsValidCasePriority(priority) {
		return nil, "", Validation("unknown priority %q", input.Priority)
	}

	var complaint models.Complaint
	if err := tx.First(&complaint, "id = ?", complaintID).Error; err != nil {
		return nil, "", notFoundOr(err, "complaint")
	}
	if complaint.IsTerminal() {
		return nil, "", Conflict("complaint %s is already %s", complaint.TrackingCode, models.NormalizeStatus(complaint.Status))
	}

	var existing int64
	if err := tx.Model(&models.Case{}).Where("complaint_id = ?", complaint.ID).Count(&existing).Error; err != nil {
		return nil, "", Internal("failed to look up case", err)
	}
	if existing > 0 {
		return nil, "", Conflict("complaint %s already has a case", complaint.TrackingCode)
	}

	var courtID *string
	if input.CourtID != "" {
		var court models.Court
		if err := tx.First(&court, "id = ?", input.CourtID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", Validation("court %s does not exist", input.CourtID)
			}
			return nil, "", Internal("failed to load court", err)
		}
		courtID = &court.ID
	}

	if err := CheckComplaintTransition(complaint.Status, models.ComplaintStatusProcessed, actor.Role); err != nil {
		return nil, "", err
	}

	reference, err := GenerateCaseReference(tx)
	if err != nil {
		return nil, "", err
	}
	caseRecord := &models.Case{
		ComplaintID: complaint.ID,
		Reference:   reference,
		CourtID:     courtID,
		Type:        complaint.ProvisionalOffence,
		Status:      models.CaseStatusOpen,
		Stage:       models.CaseStageProsecution,
		Priority:    priority,
	}
	if err := tx.Create(caseRecord).Error; err != nil {
		return nil, "", Internal("failed to create case", err)
	}
	if err := recordHistory(tx, actor, "Case", caseRecord.ID, "stage", "", caseRecord.Stage, "prosecution opened"); err != nil {
		return nil, "", err
	}

	if err := setComplaintStatus(tx, actor, &complaint, models.ComplaintStatusProcessed, "case "+reference); err != nil {
		return nil, "", err
	}

	if actor.Role == models.RoleProsecutor {
		if err := ensureAssignment(tx, caseRecord.ID, actor.ID, models.AssignmentProsecutor, actor.ID); err != nil {
			return nil, "", err
		}
	}
	return caseRecord, complaint.CitizenID, nil
}

// CloseComplaint dismisses a complaint without further action
func (w *Workflow) CloseComplaint(ctx context.Context, actor Actor, complaintID, reason string) (*models.Complaint, error) {
	return w.TransitionComplaint(ctx, actor, complaintID, models.ComplaintStatusClosed, reason)
}

// DetaineeInput identifies the person placed in custody
type DetaineeInput struct {
	NIU         string
	UserID      string
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	Gender      string
	Nationality string
}

// FlagrantDelictInput carries the in-the-act arrest details
type FlagrantDelictInput struct {
	PrisonID string
	CourtID  string
	Detainee DetaineeInput
}

// FlagrantDelictResult is everything created by the flagrant délit workflow
type FlagrantDelictResult struct {
	Case          *models.Case          `json:"case"`
	Detainee      *models.Detainee      `json:"detainee"`
	Incarceration *models.Incarceration `json:"incarceration"`
}

// FlagrantDelictIncarceration opens a high priority case and places the suspect in
// preventive detention, all in one transaction
func (w *Workflow) FlagrantDelictIncarceration(ctx context.Context, actor Actor, complaintID string, input FlagrantDelictInput) (*FlagrantDelictResult, error) {
	result := &FlagrantDelictResult{}

	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			caseRecord, _, err := prosecuteTx(tx, actor, complaintID, ProsecuteInput{
				CourtID:  input.CourtID,
				Priority: models.CasePriorityHigh,
			})
			if err != nil {
				return err
			}
			result.Case = caseRecord

			detainee, err := FindOrCreateDetainee(tx, input.Detainee)
			if err != nil {
				return err
			}
			result.Detainee = detainee

			incarceration, err := createIncarcerationTx(tx, actor, IncarcerationInput{
				DetaineeID:  detainee.ID,
				PrisonID:    input.PrisonID,
				CaseID:      caseRecord.ID,
				Status:      models.IncarcerationStatusPreventive,
				Observation: "Flagrant délit, case " + caseRecord.Reference,
			})
			if err != nil {
				return err
			}
			result.Incarceration = incarceration
			return nil
		})
	}()
	if err := w.finish(ctx, actor, "complaint.flagrant_delict", "Complaint", complaintID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return result, nil
}

// ComplaintVerification is the public authenticity confirmation of a receipt
type ComplaintVerification struct {
	ID           string    `json:"id"`
	TrackingCode string    `json:"tracking_code"`
	Status       string    `json:"status"`
	Offence      string    `json:"offence"`
	FiledAt      time.Time `json:"filed_at"`
}

// VerifyComplaint resolves a verification token without authentication
func VerifyComplaint(db *gorm.DB, token string) (*ComplaintVerification, error) {
	if token == "" {
		return nil, NotFound("verification token not found")
	}
	var complaint models.Complaint
	if err := db.Where("verification_token = ?", token).First(&complaint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("verification token not found")
		}
		return nil, Internal("failed to verify complaint", err)
	}
	return &ComplaintVerification{
		ID:           complaint.ID,
		TrackingCode: complaint.TrackingCode,
		Status:       models.NormalizeStatus(complaint.Status),
		Offence:      complaint.ProvisionalOffence,
		FiledAt:      complaint.FiledAt,
	}, nil
}

// ListComplaintsFilter narrows complaint listings
type ListComplaintsFilter struct {
	Status   string
	Page     int
	PageSize int
}

// ListComplaints returns the complaints visible to the actor, newest first
func ListComplaints(db *gorm.DB, actor Actor, filter ListComplaintsFilter) ([]models.Complaint, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	query := ScopeComplaints(db.Model(&models.Complaint{}), actor)
	if filter.Status != "" {
		query = query.Where("status = ?", models.NormalizeStatus(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, Internal("failed to count complaints", err)
	}
	var complaints []models.Complaint
	err := query.Order("filed_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&complaints).Error
	if err != nil {
		return nil, 0, Internal("failed to list complaints", err)
	}
	return complaints, total, nil
}

// GetComplaint loads a complaint with its citizen and station for the actor
func GetComplaint(db *gorm.DB, actor Actor, complaintID string) (*models.Complaint, error) {
	complaint, err := EnsureComplaintAccess(db, actor, complaintID)
	if err != nil {
		return nil, err
	}
	if err := db.Preload("Citizen").Preload("PoliceStation").First(complaint, "id = ?", complaint.ID).Error; err != nil {
		return nil, notFoundOr(err, "complaint")
	}
	return complaint, nil
}

func (w *Workflow) notifyComplaintStatus(ctx context.Context, complaint *models.Complaint) {
	if complaint == nil {
		return
	}
	w.notify(ctx, Notice{
		UserID:       complaint.CitizenID,
		Type:         models.NotificationTypeComplaintUpdate,
		Title:        "Complaint " + complaint.TrackingCode + " updated",
		Message:      "Your complaint is now " + models.NormalizeStatus(complaint.Status) + ".",
		ResourceType: "Complaint",
		ResourceID:   complaint.ID,
	})
}
