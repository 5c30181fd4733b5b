package services

import (
	"context"
	"fmt"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// DecisionInput creates a draft decision
type DecisionInput struct {
	CaseID  string
	CourtID string
	Kind    string
	Verdict string
}

// DecisionUpdate edits a draft decision. Nil fields are left unchanged.
type DecisionUpdate struct {
	Kind    *string
	Verdict *string
}

// CreateDecision drafts a ruling on a case the judge is assigned to
func (w *Workflow) CreateDecision(ctx context.Context, actor Actor, input DecisionInput) (*models.Decision, error) {
	var decision *models.Decision

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleAdmin); err != nil {
			return err
		}
		verdict := SanitizeText(input.Verdict)
		if verdict == "" {
			return Validation("verdict is required")
		}
		kind := models.NormalizeStatus(input.Kind)
		if kind == "" {
			kind = models.DecisionKindOther
		}
		if !models.IsValidDecisionKind(kind) {
			return Validation("unknown decision kind %q", input.Kind)
		}

		return w.transaction(ctx, func(tx *gorm.DB) error {
			caseRecord, err := EnsureCaseAccess(tx, actor, input.CaseID)
			if err != nil {
				return err
			}
			if !caseRecord.IsOpen() {
				return Conflict("case %s is %s", caseRecord.Reference, caseRecord.Status)
			}

			courtID := input.CourtID
			if courtID == "" && caseRecord.CourtID != nil {
				courtID = *caseRecord.CourtID
			}
			if courtID == "" {
				courtID = actor.CourtID
			}
			if courtID == "" {
				return Validation("court_id is required")
			}

			number, err := GenerateDecisionNumber(tx)
			if err != nil {
				return err
			}
			decision = &models.Decision{
				CaseID:         caseRecord.ID,
				CourtID:        courtID,
				DecisionNumber: number,
				Kind:           kind,
				Verdict:        verdict,
			}
			if actor.Role == models.RoleJudge {
				decision.JudgeID = actor.idPtr()
			}
			if err := tx.Create(decision).Error; err != nil {
				return Internal("failed to create decision", err)
			}
			return nil
		})
	}()
	resourceID := ""
	if decision != nil {
		resourceID = decision.ID
	}
	if err := w.finish(ctx, actor, "decision.create", "Decision", resourceID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return decision, nil
}

// loadDecisionForActor loads a decision and checks access to its case
func loadDecisionForActor(tx *gorm.DB, actor Actor, decisionID string) (*models.Decision, *models.Case, error) {
	var decision models.Decision
	if err := tx.First(&decision, "id = ?", decisionID).Error; err != nil {
		return nil, nil, notFoundOr(err, "decision")
	}
	caseRecord, err := EnsureCaseAccess(tx, actor, decision.CaseID)
	if err != nil {
		return nil, nil, err
	}
	return &decision, caseRecord, nil
}

// GetDecision returns a decision the actor may read
func GetDecision(db *gorm.DB, actor Actor, decisionID string) (*models.Decision, error) {
	decision, _, err := loadDecisionForActor(db, actor, decisionID)
	return decision, err
}

// ListCaseDecisions returns the decisions on a case
func ListCaseDecisions(db *gorm.DB, actor Actor, caseID string) ([]models.Decision, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var decisions []models.Decision
	if err := db.Where("case_id = ?", caseID).Order("decided_at ASC").Find(&decisions).Error; err != nil {
		return nil, Internal("failed to list decisions", err)
	}
	return decisions, nil
}

// UpdateDecision edits an unsigned decision. Signed decisions are frozen.
func (w *Workflow) UpdateDecision(ctx context.Context, actor Actor, decisionID string, input DecisionUpdate) (*models.Decision, error) {
	var decision *models.Decision

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleAdmin); err != nil {
			return err
		}
		var err error
		decision, _, err = loadDecisionForActor(w.db(ctx), actor, decisionID)
		if err != nil {
			return err
		}
		if decision.IsSigned() {
			return Conflict("decision %s is signed and can no longer be changed", decision.DecisionNumber)
		}

		updates := map[string]interface{}{}
		if input.Verdict != nil {
			verdict := SanitizeText(*input.Verdict)
			if verdict == "" {
				return Validation("verdict cannot be empty")
			}
			updates["verdict"] = verdict
		}
		if input.Kind != nil {
			kind := models.NormalizeStatus(*input.Kind)
			if !models.IsValidDecisionKind(kind) {
				return Validation("unknown decision kind %q", *input.Kind)
			}
			updates["kind"] = kind
		}
		if len(updates) == 0 {
			return Validation("nothing to update")
		}

		result := w.db(ctx).Model(&models.Decision{}).
			Where("id = ? AND signed_by IS NULL", decision.ID).
			Updates(updates)
		if result.Error != nil {
			return Internal("failed to update decision", result.Error)
		}
		if result.RowsAffected == 0 {
			return Conflict("decision %s was signed concurrently", decision.DecisionNumber)
		}
		return w.db(ctx).First(decision, "id = ?", decision.ID).Error
	}()
	if err := w.finish(ctx, actor, "decision.update", "Decision", decisionID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return decision, nil
}

// SignDecision freezes a decision and moves its case to execution
func (w *Workflow) SignDecision(ctx context.Context, actor Actor, decisionID string) (*models.Decision, error) {
	var decision *models.Decision
	var caseRecord *models.Case

	err := func() error {
		if err := Authorize(actor, models.RoleJudge, models.RoleAdmin); err != nil {
			return err
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			var err error
			decision, caseRecord, err = loadDecisionForActor(tx, actor, decisionID)
			if err != nil {
				return err
			}
			if decision.IsSigned() {
				return Conflict("decision %s is already signed", decision.DecisionNumber)
			}

			now := time.Now()
			result := tx.Model(&models.Decision{}).
				Where("id = ? AND signed_by IS NULL", decision.ID).
				Updates(map[string]interface{}{"signed_by": actor.ID, "signed_at": now})
			if result.Error != nil {
				return Internal("failed to sign decision", result.Error)
			}
			if result.RowsAffected == 0 {
				return Conflict("decision %s was signed concurrently", decision.DecisionNumber)
			}
			signer := actor.ID
			decision.SignedBy = &signer
			decision.SignedAt = &now

			return setCaseState(tx, actor, caseRecord, models.CaseStageExecution, models.CaseStatusClosed,
				"decision "+decision.DecisionNumber+" signed")
		})
	}()
	if err := w.finish(ctx, actor, "decision.sign", "Decision", decisionID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}

	w.notifyCaseParties(ctx, caseRecord, models.NotificationTypeDecision, "Decision signed",
		fmt.Sprintf("Decision %s on case %s has been signed.", decision.DecisionNumber, caseRecord.Reference))
	return decision, nil
}

// SignificationInput records service of a signed decision on a party
type SignificationInput struct {
	PartyName string
	Method    string
	Notes     string
}

// SignifyDecision records that a bailiff served a signed decision
func (w *Workflow) SignifyDecision(ctx context.Context, actor Actor, decisionID string, input SignificationInput) (*models.Signification, error) {
	var signification *models.Signification

	err := func() error {
		if err := Authorize(actor, models.RoleBailiff, models.RoleAdmin); err != nil {
			return err
		}
		party := SanitizeText(input.PartyName)
		if party == "" {
			return Validation("party_name is required")
		}
		return w.transaction(ctx, func(tx *gorm.DB) error {
			decision, _, err := loadDecisionForActor(tx, actor, decisionID)
			if err != nil {
				return err
			}
			if !decision.IsSigned() {
				return Conflict("decision %s must be signed before it is served", decision.DecisionNumber)
			}

			now := time.Now()
			signification = &models.Signification{
				DecisionID:  decision.ID,
				BailiffID:   actor.ID,
				PartyName:   party,
				Method:      SanitizeText(input.Method),
				SignifiedAt: now,
				Notes:       SanitizeText(input.Notes),
			}
			if err := tx.Create(signification).Error; err != nil {
				return Internal("failed to record signification", err)
			}
			if decision.SignifiedAt == nil {
				if err := tx.Model(&models.Decision{}).Where("id = ?", decision.ID).
					UpdateColumn("signified_at", now).Error; err != nil {
					return Internal("failed to mark decision signified", err)
				}
			}
			return nil
		})
	}()
	resourceID := decisionID
	if err := w.finish(ctx, actor, "decision.signify", "Decision", resourceID, models.AuditSeverityInfo, err); err != nil {
		return nil, err
	}
	return signification, nil
}

// notifyCaseParties notifies everyone assigned to a case and the complainant
func (w *Workflow) notifyCaseParties(ctx context.Context, caseRecord *models.Case, kind, title, message string) {
	if caseRecord == nil || w.Notifier == nil {
		return
	}
	var userIDs []string
	if err := w.db(ctx).Model(&models.Assignment{}).Where("case_id = ?", caseRecord.ID).
		Distinct().Pluck("user_id", &userIDs).Error; err != nil {
		return
	}
	for _, id := range userIDs {
		w.notify(ctx, Notice{UserID: id, Type: kind, Title: title, Message: message, ResourceType: "Case", ResourceID: caseRecord.ID})
	}

	var complaint models.Complaint
	if err := w.db(ctx).Select("id", "citizen_id").First(&complaint, "id = ?", caseRecord.ComplaintID).Error; err == nil {
		w.notify(ctx, Notice{UserID: complaint.CitizenID, Type: kind, Title: title, Message: message, ResourceType: "Complaint", ResourceID: complaint.ID})
	}
}
