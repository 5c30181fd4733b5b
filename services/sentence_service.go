package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// SentenceInput quantifies the penalty attached to a signed decision
type SentenceInput struct {
	DecisionID      string
	DetaineeID      string
	FirmYears       int
	FirmMonths      int
	FirmDays        int
	SuspendedYears  int
	SuspendedMonths int
	SuspendedDays   int
	FineAmount      float64
	DamagesAmount   float64
}

func (in SentenceInput) validate() error {
	for _, v := range []int{in.FirmYears, in.FirmMonths, in.FirmDays, in.SuspendedYears, in.SuspendedMonths, in.SuspendedDays} {
		if v < 0 {
			return Validation("sentence durations cannot be negative")
		}
	}
	if in.FineAmount < 0 || in.DamagesAmount < 0 {
		return Validation("amounts cannot be negative")
	}
	return nil
}

// AddCalendarDuration adds years, then months, then days to a copy of t
func AddCalendarDuration(t time.Time, years, months, days int) time.Time {
	return t.AddDate(years, 0, 0).AddDate(0, months, 0).AddDate(0, 0, days)
}

// CreateSentence attaches a penalty to a signed decision.
// Firm prison time marks the detainees held on the case as convicted.
func (w *Workflow) CreateSentence(ctx context.Context, actor Actor, input SentenceInput) (*models.Sentence, error) {
	var sentence *models.Sentence

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleClerk, models.RoleAdmin); err != nil {
			return err
		}
		if err := input.validate(); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			decision, _, err := loadDecisionForActor(tx, actor, input.DecisionID)
			if err != nil {
				return err
			}
			if !decision.IsSigned() {
				return Validation("decision %s must be signed before a sentence is attached", decision.DecisionNumber)
			}

			sentence = &models.Sentence{
				CaseID:          decision.CaseID,
				DecisionID:      decision.ID,
				FirmYears:       input.FirmYears,
				FirmMonths:      input.FirmMonths,
				FirmDays:        input.FirmDays,
				SuspendedYears:  input.SuspendedYears,
				SuspendedMonths: input.SuspendedMonths,
				SuspendedDays:   input.SuspendedDays,
				FineAmount:      input.FineAmount,
				DamagesAmount:   input.DamagesAmount,
			}
			if input.DetaineeID != "" {
				var detainee models.Detainee
				if err := tx.First(&detainee, "id = ?", input.DetaineeID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return Validation("detainee %s does not exist", input.DetaineeID)
					}
					return Internal("failed to load detainee", err)
				}
				sentence.DetaineeID = &detainee.ID
			}
			if err := tx.Create(sentence).Error; err != nil {
				return Internal("failed to create sentence", err)
			}

			if !sentence.HasFirmTime() {
				return nil
			}
			query := tx.Model(&models.Detainee{})
			if sentence.DetaineeID != nil {
				query = query.Where("id = ?", *sentence.DetaineeID)
			} else {
				query = query.Where("id IN (?)", tx.Model(&models.Incarceration{}).
					Select("detainee_id").
					Where("case_id = ? AND status IN ?", sentence.CaseID, models.ActiveIncarcerationStatuses))
			}
			if err := query.Update("status", models.DetaineeStatusConvicted).Error; err != nil {
				return Internal("failed to update detainee status", err)
			}
			return nil
		})
	}()
	resourceID := ""
	if sentence != nil {
		resourceID = sentence.ID
	}
	if err := w.finish(ctx, actor, "sentence.create", "Sentence", resourceID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return sentence, nil
}

// ExecuteSentence converts the preventive detention on the sentence's case into a
// conviction, with the release date computed from the firm time.
// It returns the updated incarceration, or nil when nobody is held on the case.
// Prosecutors must be assigned to the case; prison officers may only execute
// against a detention held in their own prison.
func (w *Workflow) ExecuteSentence(ctx context.Context, actor Actor, sentenceID string) (*models.Incarceration, error) {
	var incarceration *models.Incarceration

	err := func() error {
		if err := Authorize(actor, models.RoleProsecutor, models.RolePrisonOfficer, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			var sentence models.Sentence
			if err := tx.Preload("Decision").First(&sentence, "id = ?", sentenceID).Error; err != nil {
				return notFoundOr(err, "sentence")
			}
			if actor.Role == models.RoleProsecutor {
				if _, err := EnsureCaseAccess(tx, actor, sentence.CaseID); err != nil {
					return err
				}
			}
			if sentence.ExecutedAt != nil {
				return Conflict("sentence was already executed on %s", sentence.ExecutedAt.Format("2006-01-02"))
			}
			decisionNumber := ""
			if sentence.Decision != nil {
				decisionNumber = sentence.Decision.DecisionNumber
			}

			query := tx.Where("case_id = ? AND status = ?", sentence.CaseID, models.IncarcerationStatusPreventive)
			if sentence.DetaineeID != nil {
				query = query.Where("detainee_id = ?", *sentence.DetaineeID)
			}
			var found models.Incarceration
			err := query.Order("entry_date ASC").First(&found).Error
			if actor.Role == models.RolePrisonOfficer {
				switch {
				case err == nil && found.PrisonID != actor.PrisonID:
					return Forbidden("incarceration belongs to another prison")
				case errors.Is(err, gorm.ErrRecordNotFound):
					return Forbidden("no detention on this case is held in your prison")
				}
			}
			switch {
			case err == nil:
				release := AddCalendarDuration(found.EntryDate, sentence.FirmYears, sentence.FirmMonths, sentence.FirmDays)
				observation := appendObservation(found.Observation, fmt.Sprintf("Convicted under decision %s", decisionNumber))
				result := tx.Model(&models.Incarceration{}).
					Where("id = ? AND status = ?", found.ID, models.IncarcerationStatusPreventive).
					Updates(map[string]interface{}{
						"status":       models.IncarcerationStatusConvicted,
						"release_date": release,
						"observation":  observation,
					})
				if result.Error != nil {
					return Internal("failed to update incarceration", result.Error)
				}
				if result.RowsAffected == 0 {
					return Conflict("incarceration was modified concurrently")
				}
				if err := recordHistory(tx, actor, "Incarceration", found.ID, "status",
					models.IncarcerationStatusPreventive, models.IncarcerationStatusConvicted, "decision "+decisionNumber); err != nil {
					return err
				}
				if err := tx.Model(&models.Detainee{}).Where("id = ?", found.DetaineeID).
					Update("status", models.DetaineeStatusConvicted).Error; err != nil {
					return Internal("failed to update detainee status", err)
				}
				if err := tx.First(&found, "id = ?", found.ID).Error; err != nil {
					return Internal("failed to reload incarceration", err)
				}
				incarceration = &found
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return Internal("failed to look up incarceration", err)
			}

			if err := tx.Model(&models.Sentence{}).Where("id = ?", sentence.ID).
				Update("executed_at", time.Now()).Error; err != nil {
				return Internal("failed to mark sentence executed", err)
			}
			return nil
		})
	}()
	if err := w.finish(ctx, actor, "sentence.execute", "Sentence", sentenceID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return incarceration, nil
}

// ListCaseSentences returns the sentences attached to a case
func ListCaseSentences(db *gorm.DB, actor Actor, caseID string) ([]models.Sentence, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var sentences []models.Sentence
	if err := db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&sentences).Error; err != nil {
		return nil, Internal("failed to list sentences", err)
	}
	return sentences, nil
}
