package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// FindOrCreateDetainee returns the detainee with the given NIU, creating the record when absent.
// Without an NIU a new identity record is always created.
func FindOrCreateDetainee(tx *gorm.DB, input DetaineeInput) (*models.Detainee, error) {
	niu := strings.TrimSpace(input.NIU)

	if niu != "" {
		var existing models.Detainee
		err := tx.Where("niu = ?", niu).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Internal("failed to look up detainee", err)
		}
	}

	firstName := SanitizeText(input.FirstName)
	lastName := SanitizeText(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, Validation("detainee first and last name are required")
	}

	detainee := &models.Detainee{
		FirstName:   firstName,
		LastName:    lastName,
		BirthDate:   input.BirthDate,
		Gender:      input.Gender,
		Nationality: input.Nationality,
		Status:      models.DetaineeStatusPreventive,
	}
	if niu != "" {
		detainee.NIU = &niu
	}
	if input.UserID != "" {
		userID := input.UserID
		detainee.UserID = &userID
	}
	if err := tx.Create(detainee).Error; err != nil {
		return nil, Internal("failed to create detainee", err)
	}
	return detainee, nil
}

// IncarcerationInput places a detainee in a prison
type IncarcerationInput struct {
	DetaineeID  string
	PrisonID    string
	CaseID      string
	Status      string
	EntryDate   time.Time
	Observation string
}

func createIncarcerationTx(tx *gorm.DB, actor Actor, input IncarcerationInput) (*models.Incarceration, error) {
	status := models.NormalizeStatus(input.Status)
	if status == "" {
		status = models.IncarcerationStatusPreventive
	}
	if status != models.IncarcerationStatusPreventive && status != models.IncarcerationStatusConvicted {
		return nil, Validation("a new incarceration must be preventive or convicted")
	}

	var prison models.Prison
	if err := tx.First(&prison, "id = ?", input.PrisonID).Error; err != nil {
		return nil, notFoundOr(err, "prison")
	}
	var detainee models.Detainee
	if err := tx.First(&detainee, "id = ?", input.DetaineeID).Error; err != nil {
		return nil, notFoundOr(err, "detainee")
	}

	var caseID *string
	if input.CaseID != "" {
		id := input.CaseID
		caseID = &id
	}

	active, err := activeIncarceration(tx, detainee.ID, caseID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, Conflict("detainee %s already has an active incarceration for this case", detainee.FullName())
	}

	incarceration := &models.Incarceration{
		DetaineeID:  detainee.ID,
		PrisonID:    prison.ID,
		CaseID:      caseID,
		Status:      status,
		EntryDate:   input.EntryDate,
		Observation: SanitizeText(input.Observation),
	}
	if err := tx.Create(incarceration).Error; err != nil {
		return nil, Internal("failed to create incarceration", err)
	}
	if err := recordHistory(tx, actor, "Incarceration", incarceration.ID, "status", "", status, "entry at "+prison.Name); err != nil {
		return nil, err
	}
	return incarceration, nil
}

func activeIncarceration(tx *gorm.DB, detaineeID string, caseID *string) (*models.Incarceration, error) {
	query := tx.Where("detainee_id = ? AND status IN ?", detaineeID, models.ActiveIncarcerationStatuses)
	if caseID != nil {
		query = query.Where("case_id = ?", *caseID)
	} else {
		query = query.Where("case_id IS NULL")
	}

	var existing models.Incarceration
	err := query.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Internal("failed to look up active incarceration", err)
	}
	return &existing, nil
}

// CreateIncarceration records a custody entry outside the flagrant délit flow
func (w *Workflow) CreateIncarceration(ctx context.Context, actor Actor, input IncarcerationInput) (*models.Incarceration, error) {
	var incarceration *models.Incarceration
	err := func() error {
		if err := Authorize(actor, models.RolePrisonOfficer, models.RoleProsecutor, models.RoleAdmin); err != nil {
			return err
		}
		if actor.Role == models.RolePrisonOfficer && actor.PrisonID != input.PrisonID {
			return Forbidden("prison officers may only register entries in their own prison")
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			if input.CaseID != "" {
				if actor.Role == models.RolePrisonOfficer {
					var caseRecord models.Case
					if err := tx.Select("id").First(&caseRecord, "id = ?", input.CaseID).Error; err != nil {
						return notFoundOr(err, "case")
					}
				} else if _, err := EnsureCaseAccess(tx, actor, input.CaseID); err != nil {
					return err
				}
			}
			var err error
			incarceration, err = createIncarcerationTx(tx, actor, input)
			return err
		})
	}()
	resourceID := ""
	if incarceration != nil {
		resourceID = incarceration.ID
	}
	if err := w.finish(ctx, actor, "incarceration.create", "Incarceration", resourceID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return incarceration, nil
}

// ReleaseIncarceration ends an active custody record
func (w *Workflow) ReleaseIncarceration(ctx context.Context, actor Actor, incarcerationID string, releasedAt time.Time, note string) (*models.Incarceration, error) {
	return w.endIncarceration(ctx, actor, incarcerationID, models.IncarcerationStatusReleased, releasedAt, note)
}

// RecordEscape marks an active custody record as escaped
func (w *Workflow) RecordEscape(ctx context.Context, actor Actor, incarcerationID string, at time.Time, note string) (*models.Incarceration, error) {
	return w.endIncarceration(ctx, actor, incarcerationID, models.IncarcerationStatusEscaped, at, note)
}

func (w *Workflow) endIncarceration(ctx context.Context, actor Actor, incarcerationID, status string, at time.Time, note string) (*models.Incarceration, error) {
	if at.IsZero() {
		at = time.Now()
	}
	var incarceration models.Incarceration

	err := func() error {
		if err := Authorize(actor, models.RolePrisonOfficer, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			if err := tx.First(&incarceration, "id = ?", incarcerationID).Error; err != nil {
				return notFoundOr(err, "incarceration")
			}
			if actor.Role == models.RolePrisonOfficer && actor.PrisonID != incarceration.PrisonID {
				return Forbidden("incarceration belongs to another prison")
			}
			if !incarceration.IsActive() {
				return Conflict("incarceration is already %s", incarceration.Status)
			}

			from := incarceration.Status
			updates := map[string]interface{}{
				"status":      status,
				"observation": appendObservation(incarceration.Observation, SanitizeText(note)),
			}
			if status == models.IncarcerationStatusReleased {
				updates["actual_release_date"] = at
			}
			result := tx.Model(&models.Incarceration{}).
				Where("id = ? AND status = ?", incarceration.ID, from).
				Updates(updates)
			if result.Error != nil {
				return Internal("failed to update incarceration", result.Error)
			}
			if result.RowsAffected == 0 {
				return Conflict("incarceration was modified concurrently")
			}
			if err := recordHistory(tx, actor, "Incarceration", incarceration.ID, "status", from, status, note); err != nil {
				return err
			}

			if status == models.IncarcerationStatusReleased {
				var stillHeld int64
				if err := tx.Model(&models.Incarceration{}).
					Where("detainee_id = ? AND status IN ?", incarceration.DetaineeID, models.ActiveIncarcerationStatuses).
					Count(&stillHeld).Error; err != nil {
					return Internal("failed to count active incarcerations", err)
				}
				if stillHeld == 0 {
					if err := tx.Model(&models.Detainee{}).Where("id = ?", incarceration.DetaineeID).
						Update("status", models.DetaineeStatusReleased).Error; err != nil {
						return Internal("failed to update detainee", err)
					}
				}
			}
			return tx.First(&incarceration, "id = ?", incarceration.ID).Error
		})
	}()
	if err := w.finish(ctx, actor, "incarceration."+status, "Incarceration", incarcerationID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return &incarceration, nil
}

func appendObservation(current, line string) string {
	if line == "" {
		return current
	}
	if current == "" {
		return line
	}
	return current + "\n" + line
}

// IncarcerationFilter narrows incarceration listings
type IncarcerationFilter struct {
	PrisonID string
	CaseID   string
	Status   string
}

// ListIncarcerations returns custody records with detainee and prison loaded
func ListIncarcerations(db *gorm.DB, actor Actor, filter IncarcerationFilter) ([]models.Incarceration, error) {
	if err := Authorize(actor, models.RolePrisonOfficer, models.RoleProsecutor, models.RoleJudge, models.RoleAdmin); err != nil {
		return nil, err
	}
	query := db.Preload("Detainee").Preload("Prison")
	if actor.Role == models.RolePrisonOfficer {
		query = query.Where("prison_id = ?", actor.PrisonID)
	} else if filter.PrisonID != "" {
		query = query.Where("prison_id = ?", filter.PrisonID)
	}
	if filter.CaseID != "" {
		query = query.Where("case_id = ?", filter.CaseID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", models.NormalizeStatus(filter.Status))
	}

	var incarcerations []models.Incarceration
	if err := query.Order("entry_date DESC").Find(&incarcerations).Error; err != nil {
		return nil, Internal("failed to list incarcerations", err)
	}
	return incarcerations, nil
}

// PrisonOccupancyRow is one line of the occupancy report
type PrisonOccupancyRow struct {
	PrisonID   string  `json:"prison_id"`
	PrisonName string  `json:"prison_name"`
	City       string  `json:"city"`
	Capacity   int     `json:"capacity"`
	Preventive int64   `json:"preventive"`
	Convicted  int64   `json:"convicted"`
	Total      int64   `json:"total"`
	Rate       float64 `json:"occupancy_rate"`
}

// PrisonOccupancy counts active incarcerations grouped by prison
func PrisonOccupancy(db *gorm.DB) ([]PrisonOccupancyRow, error) {
	var prisons []models.Prison
	if err := db.Order("name ASC").Find(&prisons).Error; err != nil {
		return nil, Internal("failed to load prisons", err)
	}

	type countRow struct {
		PrisonID string
		Status   string
		Count    int64
	}
	var counts []countRow
	err := db.Model(&models.Incarceration{}).
		Select("prison_id, status, COUNT(*) AS count").
		Where("status IN ?", models.ActiveIncarcerationStatuses).
		Group("prison_id, status").
		Scan(&counts).Error
	if err != nil {
		return nil, Internal("failed to count incarcerations", err)
	}

	byPrison := make(map[string]*PrisonOccupancyRow, len(prisons))
	rows := make([]PrisonOccupancyRow, len(prisons))
	for i, p := range prisons {
		rows[i] = PrisonOccupancyRow{PrisonID: p.ID, PrisonName: p.Name, City: p.City, Capacity: p.Capacity}
		byPrison[p.ID] = &rows[i]
	}
	for _, c := range counts {
		row, ok := byPrison[c.PrisonID]
		if !ok {
			continue
		}
		switch c.Status {
		case models.IncarcerationStatusPreventive:
			row.Preventive += c.Count
		case models.IncarcerationStatusConvicted:
			row.Convicted += c.Count
		}
		row.Total += c.Count
	}
	for i := range rows {
		if rows[i].Capacity > 0 {
			rows[i].Rate = float64(rows[i].Total) / float64(rows[i].Capacity)
		}
	}
	return rows, nil
}
