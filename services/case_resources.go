package services

import (
	"context"
	"errors"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// CaseFilter narrows case listings
type CaseFilter struct {
	Status   string
	Stage    string
	Priority string
	CourtID  string
	Page     int
	PageSize int
}

// ListCases returns the cases the actor is assigned to, or all cases for admins
func ListCases(db *gorm.DB, actor Actor, filter CaseFilter) ([]models.Case, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	query := ScopeCases(db.Model(&models.Case{}), actor)
	if filter.Status != "" {
		query = query.Where("status = ?", models.NormalizeStatus(filter.Status))
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", models.NormalizeStatus(filter.Stage))
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", models.NormalizeStatus(filter.Priority))
	}
	if filter.CourtID != "" {
		query = query.Where("court_id = ?", filter.CourtID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, Internal("failed to count cases", err)
	}
	var cases []models.Case
	err := query.Order("opened_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&cases).Error
	if err != nil {
		return nil, 0, Internal("failed to list cases", err)
	}
	return cases, total, nil
}

// GetCase loads a case with its complaint, court and assignments
func GetCase(db *gorm.DB, actor Actor, caseID string) (*models.Case, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var caseRecord models.Case
	err := db.Preload("Complaint").Preload("Court").Preload("Assignments.User").
		First(&caseRecord, "id = ?", caseID).Error
	if err != nil {
		return nil, notFoundOr(err, "case")
	}
	return &caseRecord, nil
}

// AdvanceCaseStage moves a case forward in the pipeline. Backward moves are rejected.
func (w *Workflow) AdvanceCaseStage(ctx context.Context, actor Actor, caseID, stage, note string) (*models.Case, error) {
	stage = models.NormalizeStatus(stage)
	var caseRecord *models.Case

	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RoleJudge, models.RoleClerk, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			var err error
			caseRecord, err = EnsureCaseAccess(tx, actor, caseID)
			if err != nil {
				return err
			}
			if caseRecord.Stage == stage {
				return Conflict("case %s is already at stage %s", caseRecord.Reference, stage)
			}
			status := caseRecord.Status
			if stage == models.CaseStageArchived {
				status = models.CaseStatusArchived
			}
			return setCaseState(tx, actor, caseRecord, stage, status, SanitizeText(note))
		})
	}()
	if err := w.finish(ctx, actor, "case.stage."+stage, "Case", caseID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}

	w.notifyCaseParties(ctx, caseRecord, models.NotificationTypeCaseUpdate, "Case "+caseRecord.Reference+" updated",
		"The case moved to stage "+stage+".")
	return caseRecord, nil
}

// AssignUser binds a professional user to a case in a functional role
func (w *Workflow) AssignUser(ctx context.Context, actor Actor, caseID, userID, role string) (*models.Assignment, error) {
	var assignment models.Assignment

	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RoleJudge, models.RoleAdmin); err != nil {
			return err
		}
		role = models.NormalizeStatus(role)
		if !models.IsValidAssignmentRole(role) {
			return Validation("unknown assignment role %q", role)
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			if _, err := EnsureCaseAccess(tx, actor, caseID); err != nil {
				return err
			}
			var user models.User
			if err := tx.First(&user, "id = ?", userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return Validation("user %s does not exist", userID)
				}
				return Internal("failed to load user", err)
			}
			if user.Role == models.RoleCitizen || !user.IsActive {
				return Validation("%s cannot be assigned to a case", user.Name)
			}
			if err := ensureAssignment(tx, caseID, user.ID, role, actor.ID); err != nil {
				return err
			}
			return tx.Preload("User").
				Where("case_id = ? AND user_id = ? AND role = ?", caseID, user.ID, role).
				First(&assignment).Error
		})
	}()
	if err := w.finish(ctx, actor, "case.assign", "Case", caseID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}

	w.notify(ctx, Notice{
		UserID:       userID,
		Type:         models.NotificationTypeCaseUpdate,
		Title:        "New case assignment",
		Message:      "You were assigned to a case as " + role + ".",
		ResourceType: "Case",
		ResourceID:   assignment.CaseID,
		Email:        true,
	})
	return &assignment, nil
}

// RemoveAssignment unbinds a user from a case
func (w *Workflow) RemoveAssignment(ctx context.Context, actor Actor, caseID, assignmentID string) error {
	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RoleJudge, models.RoleAdmin); err != nil {
			return err
		}
		if _, err := EnsureCaseAccess(w.db(ctx), actor, caseID); err != nil {
			return err
		}
		result := w.db(ctx).Where("id = ? AND case_id = ?", assignmentID, caseID).Delete(&models.Assignment{})
		if result.Error != nil {
			return Internal("failed to remove assignment", result.Error)
		}
		if result.RowsAffected == 0 {
			return NotFound("assignment not found")
		}
		return nil
	}()
	return w.finish(ctx, actor, "case.unassign", "Case", caseID, models.AuditSeverityInfo, err)
}

// ListAssignments returns who works on a case
func ListAssignments(db *gorm.DB, actor Actor, caseID string) ([]models.Assignment, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var assignments []models.Assignment
	if err := db.Preload("User").Where("case_id = ?", caseID).Order("created_at ASC").Find(&assignments).Error; err != nil {
		return nil, Internal("failed to list assignments", err)
	}
	return assignments, nil
}

// CreateNote adds a professional note to a case
func (w *Workflow) CreateNote(ctx context.Context, actor Actor, caseID, content string, confidential bool) (*models.CaseNote, error) {
	var note *models.CaseNote

	err := func() error {
		if _, err := EnsureCaseAccess(w.db(ctx), actor, caseID); err != nil {
			return err
		}
		content = SanitizeText(content)
		if content == "" {
			return Validation("note content is required")
		}
		stored, err := sealNote(content, confidential)
		if err != nil {
			return err
		}
		note = &models.CaseNote{
			CaseID:       caseID,
			AuthorID:     actor.ID,
			Content:      stored,
			Confidential: confidential,
		}
		if err := w.db(ctx).Create(note).Error; err != nil {
			return Internal("failed to create note", err)
		}
		note.Content = content
		return nil
	}()
	resourceID := ""
	if note != nil {
		resourceID = note.ID
	}
	if err := w.finish(ctx, actor, "case.note.create", "CaseNote", resourceID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns the notes on a case. Confidential notes are only shown to their
// author, magistrates and admins.
func ListNotes(db *gorm.DB, actor Actor, caseID string) ([]models.CaseNote, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	query := db.Preload("Author").Where("case_id = ?", caseID)
	switch actor.Role {
	case models.RoleAdmin, models.RoleJudge, models.RoleProsecutor:
	default:
		query = query.Where("confidential = ? OR author_id = ?", false, actor.ID)
	}

	var notes []models.CaseNote
	if err := query.Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, Internal("failed to list notes", err)
	}
	for i := range notes {
		content, err := OpenField(notes[i].Content)
		if err != nil {
			return nil, Internal("failed to open confidential note", err)
		}
		notes[i].Content = content
	}
	return notes, nil
}

func sealNote(content string, confidential bool) (string, error) {
	if !confidential {
		return content, nil
	}
	sealed, err := SealField(content)
	if err != nil {
		return "", Internal("failed to seal confidential note", err)
	}
	return sealed, nil
}

// UpdateNote lets the author edit a note
func (w *Workflow) UpdateNote(ctx context.Context, actor Actor, caseID, noteID, content string) (*models.CaseNote, error) {
	var note models.CaseNote

	err := func() error {
		if _, err := EnsureCaseAccess(w.db(ctx), actor, caseID); err != nil {
			return err
		}
		if err := w.db(ctx).First(&note, "id = ? AND case_id = ?", noteID, caseID).Error; err != nil {
			return notFoundOr(err, "note")
		}
		if note.AuthorID != actor.ID && !actor.IsAdmin() {
			return Forbidden("only the author can edit this note")
		}
		content = SanitizeText(content)
		if content == "" {
			return Validation("note content is required")
		}
		stored, err := sealNote(content, note.Confidential)
		if err != nil {
			return err
		}
		if err := w.db(ctx).Model(&note).Update("content", stored).Error; err != nil {
			return Internal("failed to update note", err)
		}
		note.Content = content
		return nil
	}()
	if err := w.finish(ctx, actor, "case.note.update", "CaseNote", noteID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote soft-deletes a note
func (w *Workflow) DeleteNote(ctx context.Context, actor Actor, caseID, noteID string) error {
	err := func() error {
		if _, err := EnsureCaseAccess(w.db(ctx), actor, caseID); err != nil {
			return err
		}
		var note models.CaseNote
		if err := w.db(ctx).First(&note, "id = ? AND case_id = ?", noteID, caseID).Error; err != nil {
			return notFoundOr(err, "note")
		}
		if note.AuthorID != actor.ID && !actor.IsAdmin() {
			return Forbidden("only the author can delete this note")
		}
		if err := w.db(ctx).Delete(&note).Error; err != nil {
			return Internal("failed to delete note", err)
		}
		return nil
	}()
	return w.finish(ctx, actor, "case.note.delete", "CaseNote", noteID, models.AuditSeverityWarning, err)
}

// HearingInput schedules a hearing
type HearingInput struct {
	ScheduledAt time.Time
	Room        string
	Kind        string
	Notes       string
}

// ScheduleHearing puts a hearing on the court calendar
func (w *Workflow) ScheduleHearing(ctx context.Context, actor Actor, caseID string, input HearingInput) (*models.Hearing, error) {
	var hearing *models.Hearing

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleClerk, models.RoleAdmin); err != nil {
			return err
		}
		caseRecord, err := EnsureCaseAccess(w.db(ctx), actor, caseID)
		if err != nil {
			return err
		}
		if !caseRecord.IsOpen() {
			return Conflict("case %s is %s", caseRecord.Reference, caseRecord.Status)
		}
		if input.ScheduledAt.IsZero() || input.ScheduledAt.Before(time.Now()) {
			return Validation("a hearing must be scheduled in the future")
		}
		hearing = &models.Hearing{
			CaseID:      caseID,
			CourtID:     caseRecord.CourtID,
			ScheduledAt: input.ScheduledAt,
			Room:        SanitizeText(input.Room),
			Kind:        SanitizeText(input.Kind),
			Status:      models.HearingStatusScheduled,
			Notes:       SanitizeText(input.Notes),
		}
		if err := w.db(ctx).Create(hearing).Error; err != nil {
			return Internal("failed to schedule hearing", err)
		}
		return nil
	}()
	resourceID := ""
	if hearing != nil {
		resourceID = hearing.ID
	}
	if err := w.finish(ctx, actor, "case.hearing.schedule", "Hearing", resourceID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return hearing, nil
}

// UpdateHearingStatus records that a hearing was held, postponed or cancelled
func (w *Workflow) UpdateHearingStatus(ctx context.Context, actor Actor, caseID, hearingID, status, notes string) (*models.Hearing, error) {
	status = models.NormalizeStatus(status)
	var hearing models.Hearing

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleClerk, models.RoleAdmin); err != nil {
			return err
		}
		switch status {
		case models.HearingStatusHeld, models.HearingStatusPostponed, models.HearingStatusCancelled:
		default:
			return Validation("unknown hearing status %q", status)
		}
		if _, err := EnsureCaseAccess(w.db(ctx), actor, caseID); err != nil {
			return err
		}
		if err := w.db(ctx).First(&hearing, "id = ? AND case_id = ?", hearingID, caseID).Error; err != nil {
			return notFoundOr(err, "hearing")
		}
		if hearing.Status != models.HearingStatusScheduled {
			return Conflict("hearing is already %s", hearing.Status)
		}
		hearing.Status = status
		hearing.Notes = appendObservation(hearing.Notes, SanitizeText(notes))
		if err := w.db(ctx).Model(&hearing).Updates(map[string]interface{}{
			"status": hearing.Status,
			"notes":  hearing.Notes,
		}).Error; err != nil {
			return Internal("failed to update hearing", err)
		}
		return nil
	}()
	if err := w.finish(ctx, actor, "case.hearing."+status, "Hearing", hearingID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return &hearing, nil
}

// ListHearings returns the hearings of a case in calendar order
func ListHearings(db *gorm.DB, actor Actor, caseID string) ([]models.Hearing, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var hearings []models.Hearing
	if err := db.Where("case_id = ?", caseID).Order("scheduled_at ASC").Find(&hearings).Error; err != nil {
		return nil, Internal("failed to list hearings", err)
	}
	return hearings, nil
}

// WarrantInput issues a warrant
type WarrantInput struct {
	Kind       string
	TargetName string
	Reason     string
}

// IssueWarrant issues an arrest, search or committal warrant on a case
func (w *Workflow) IssueWarrant(ctx context.Context, actor Actor, caseID string, input WarrantInput) (*models.Warrant, error) {
	var warrant *models.Warrant

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleProsecutor, models.RoleAdmin); err != nil {
			return err
		}
		kind := models.NormalizeStatus(input.Kind)
		if !models.IsValidWarrantKind(kind) {
			return Validation("unknown warrant kind %q", input.Kind)
		}
		target := SanitizeText(input.TargetName)
		if target == "" {
			return Validation("target_name is required")
		}
		caseRecord, err := EnsureCaseAccess(w.db(ctx), actor, caseID)
		if err != nil {
			return err
		}
		if !caseRecord.IsOpen() {
			return Conflict("case %s is %s", caseRecord.Reference, caseRecord.Status)
		}
		warrant = &models.Warrant{
			CaseID:     caseID,
			Kind:       kind,
			TargetName: target,
			Reason:     SanitizeText(input.Reason),
			IssuedBy:   actor.ID,
			Status:     models.WarrantStatusIssued,
		}
		if err := w.db(ctx).Create(warrant).Error; err != nil {
			return Internal("failed to issue warrant", err)
		}
		return nil
	}()
	resourceID := ""
	if warrant != nil {
		resourceID = warrant.ID
	}
	if err := w.finish(ctx, actor, "case.warrant.issue", "Warrant", resourceID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return warrant, nil
}

// ExecuteWarrant records the execution of an issued warrant
func (w *Workflow) ExecuteWarrant(ctx context.Context, actor Actor, caseID, warrantID string) (*models.Warrant, error) {
	var warrant models.Warrant

	err := func() error {
		if err := Authorize(actor, models.RolePolice, models.RoleBailiff, models.RoleAdmin); err != nil {
			return err
		}
		if _, err := EnsureCaseAccess(w.db(ctx), actor, caseID); err != nil {
			return err
		}
		if err := w.db(ctx).First(&warrant, "id = ? AND case_id = ?", warrantID, caseID).Error; err != nil {
			return notFoundOr(err, "warrant")
		}
		now := time.Now()
		result := w.db(ctx).Model(&models.Warrant{}).
			Where("id = ? AND status = ?", warrant.ID, models.WarrantStatusIssued).
			Updates(map[string]interface{}{
				"status":      models.WarrantStatusExecuted,
				"executed_by": actor.ID,
				"executed_at": now,
			})
		if result.Error != nil {
			return Internal("failed to execute warrant", result.Error)
		}
		if result.RowsAffected == 0 {
			return Conflict("warrant is already %s", warrant.Status)
		}
		executor := actor.ID
		warrant.Status = models.WarrantStatusExecuted
		warrant.ExecutedBy = &executor
		warrant.ExecutedAt = &now
		return nil
	}()
	if err := w.finish(ctx, actor, "case.warrant.execute", "Warrant", warrantID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return &warrant, nil
}

// ListWarrants returns the warrants issued on a case
func ListWarrants(db *gorm.DB, actor Actor, caseID string) ([]models.Warrant, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var warrants []models.Warrant
	if err := db.Where("case_id = ?", caseID).Order("issued_at DESC").Find(&warrants).Error; err != nil {
		return nil, Internal("failed to list warrants", err)
	}
	return warrants, nil
}
