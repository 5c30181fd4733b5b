package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// MaxEvidenceSize bounds a single exhibit upload
const MaxEvidenceSize = 50 * 1024 * 1024

// EvidenceInput describes an exhibit being seized
type EvidenceInput struct {
	CaseID      string
	Label       string
	Description string
	Kind        string
	Note        string
}

// EvidenceFile is the optional digital copy of an exhibit
type EvidenceFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

// RegisterEvidence records a seized exhibit, stores its file, and opens its custody chain
func (w *Workflow) RegisterEvidence(ctx context.Context, actor Actor, storage StorageProvider, input EvidenceInput, file *EvidenceFile) (*models.Evidence, error) {
	var evidence *models.Evidence
	var storedKey string

	err := func() error {
		if err := Authorize(actor, models.RolePolice, models.RoleProsecutor, models.RoleJudge, models.RoleClerk, models.RoleAdmin); err != nil {
			return err
		}
		label := SanitizeText(input.Label)
		if label == "" {
			return Validation("label is required")
		}
		if _, err := EnsureCaseAccess(w.db(ctx), actor, input.CaseID); err != nil {
			return err
		}

		evidence = &models.Evidence{
			CaseID:             input.CaseID,
			Label:              label,
			Description:        SanitizeText(input.Description),
			Kind:               SanitizeText(input.Kind),
			Status:             models.EvidenceStatusHeld,
			CollectedBy:        actor.ID,
			CurrentCustodianID: actor.ID,
		}

		if file != nil && file.Reader != nil {
			if storage == nil {
				return Internal("evidence storage is not configured", nil)
			}
			if file.Size > MaxEvidenceSize {
				return Validation("evidence file exceeds the %d MB limit", MaxEvidenceSize/(1024*1024))
			}
			contentType := file.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			digest := sha256.New()
			key := GenerateEvidenceKey(input.CaseID, file.FileName)
			stored, err := storage.UploadReader(ctx, io.TeeReader(file.Reader, digest), key, contentType, file.Size)
			if err != nil {
				return Internal("failed to store evidence file", err)
			}
			storedKey = stored.Key
			evidence.StorageKey = stored.Key
			evidence.FileName = file.FileName
			evidence.MimeType = contentType
			evidence.FileSize = stored.Size
			evidence.ContentHash = hex.EncodeToString(digest.Sum(nil))
		}

		return w.transaction(ctx, func(tx *gorm.DB) error {
			if err := tx.Create(evidence).Error; err != nil {
				return Internal("failed to register evidence", err)
			}
			_, err := appendCustody(tx, evidence.ID, models.CustodyActionCollected, nil, actor.ID, SanitizeText(input.Note))
			return err
		})
	}()

	if err != nil && storedKey != "" {
		if delErr := storage.Delete(context.Background(), storedKey); delErr != nil {
			countFailure("evidence.cleanup", delErr)
		}
	}
	resourceID := ""
	if evidence != nil {
		resourceID = evidence.ID
	}
	if err := w.finish(ctx, actor, "evidence.register", "Evidence", resourceID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return evidence, nil
}

// CustodyInput moves an exhibit to a new holder or changes its state
type CustodyInput struct {
	Action   string
	ToUserID string
	Note     string
}

// TransferCustody appends a link to the custody chain of an exhibit.
// Only the current custodian, or an admin, may hand it over.
func (w *Workflow) TransferCustody(ctx context.Context, actor Actor, evidenceID string, input CustodyInput) (*models.CustodyEntry, error) {
	var entry *models.CustodyEntry

	err := func() error {
		action := models.NormalizeStatus(input.Action)
		if action == "" {
			action = models.CustodyActionTransferred
		}
		switch action {
		case models.CustodyActionTransferred, models.CustodyActionExamined,
			models.CustodyActionReturned, models.CustodyActionDestroyed:
		default:
			return Validation("unknown custody action %q", input.Action)
		}

		return w.transaction(ctx, func(tx *gorm.DB) error {
			var evidence models.Evidence
			if err := tx.First(&evidence, "id = ?", evidenceID).Error; err != nil {
				return notFoundOr(err, "evidence")
			}
			if _, err := EnsureCaseAccess(tx, actor, evidence.CaseID); err != nil {
				return err
			}
			if !actor.IsAdmin() && evidence.CurrentCustodianID != actor.ID {
				return Forbidden("only the current custodian can hand over exhibit %s", evidence.Label)
			}
			if evidence.Status != models.EvidenceStatusHeld {
				return Conflict("exhibit %s is %s", evidence.Label, evidence.Status)
			}

			to := input.ToUserID
			if to == "" {
				to = evidence.CurrentCustodianID
			}
			if to != evidence.CurrentCustodianID {
				var recipient models.User
				if err := tx.First(&recipient, "id = ?", to).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return Validation("recipient %s does not exist", to)
					}
					return Internal("failed to load recipient", err)
				}
				if !recipient.IsActive {
					return Validation("recipient %s is not active", recipient.Name)
				}
			}

			updates := map[string]interface{}{"current_custodian_id": to}
			switch action {
			case models.CustodyActionReturned:
				updates["status"] = models.EvidenceStatusReturned
			case models.CustodyActionDestroyed:
				updates["status"] = models.EvidenceStatusDestroyed
			}
			result := tx.Model(&models.Evidence{}).
				Where("id = ? AND current_custodian_id = ?", evidence.ID, evidence.CurrentCustodianID).
				Updates(updates)
			if result.Error != nil {
				return Internal("failed to update evidence", result.Error)
			}
			if result.RowsAffected == 0 {
				return Conflict("exhibit %s changed hands concurrently", evidence.Label)
			}

			from := evidence.CurrentCustodianID
			var err error
			entry, err = appendCustody(tx, evidence.ID, action, &from, to, SanitizeText(input.Note))
			return err
		})
	}()
	if err := w.finish(ctx, actor, "evidence.custody", "Evidence", evidenceID, models.AuditSeverityHigh, err); err != nil {
		return nil, err
	}
	return entry, nil
}

func appendCustody(tx *gorm.DB, evidenceID, action string, fromUserID *string, toUserID, note string) (*models.CustodyEntry, error) {
	var last []models.CustodyEntry
	if err := tx.Where("evidence_id = ?", evidenceID).Order("created_at DESC").Limit(1).Find(&last).Error; err != nil {
		return nil, Internal("failed to read custody chain", err)
	}

	entry := &models.CustodyEntry{
		EvidenceID: evidenceID,
		Action:     action,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Note:       note,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	if len(last) > 0 {
		entry.PrevHash = last[0].Hash
		if !entry.CreatedAt.After(last[0].CreatedAt) {
			entry.CreatedAt = last[0].CreatedAt.Add(time.Microsecond)
		}
	}
	entry.Hash = hashCustodyEntry(entry)

	if err := tx.Create(entry).Error; err != nil {
		return nil, Internal("failed to append custody entry", err)
	}
	return entry, nil
}

func hashCustodyEntry(e *models.CustodyEntry) string {
	from := ""
	if e.FromUserID != nil {
		from = *e.FromUserID
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		e.EvidenceID, e.Action, from, e.ToUserID, e.Note,
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.PrevHash,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

// CustodyTrail is the ordered custody history of an exhibit and whether it is intact
type CustodyTrail struct {
	Evidence *models.Evidence      `json:"evidence"`
	Entries  []models.CustodyEntry `json:"entries"`
	Intact   bool                  `json:"intact"`
}

// GetCustodyTrail loads and verifies the custody chain of an exhibit
func GetCustodyTrail(db *gorm.DB, actor Actor, evidenceID string) (*CustodyTrail, error) {
	var evidence models.Evidence
	if err := db.First(&evidence, "id = ?", evidenceID).Error; err != nil {
		return nil, notFoundOr(err, "evidence")
	}
	if _, err := EnsureCaseAccess(db, actor, evidence.CaseID); err != nil {
		return nil, err
	}

	var entries []models.CustodyEntry
	if err := db.Where("evidence_id = ?", evidence.ID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, Internal("failed to load custody chain", err)
	}

	trail := &CustodyTrail{Evidence: &evidence, Entries: entries, Intact: true}
	prev := ""
	for i := range entries {
		if entries[i].PrevHash != prev || hashCustodyEntry(&entries[i]) != entries[i].Hash {
			trail.Intact = false
			break
		}
		prev = entries[i].Hash
	}
	return trail, nil
}

// ListCaseEvidence returns the exhibits seized for a case
func ListCaseEvidence(db *gorm.DB, actor Actor, caseID string) ([]models.Evidence, error) {
	if _, err := EnsureCaseAccess(db, actor, caseID); err != nil {
		return nil, err
	}
	var evidence []models.Evidence
	if err := db.Where("case_id = ?", caseID).Order("collected_at ASC").Find(&evidence).Error; err != nil {
		return nil, Internal("failed to list evidence", err)
	}
	return evidence, nil
}

// OpenEvidenceFile returns a reader over the stored file of an exhibit the actor may see
func OpenEvidenceFile(ctx context.Context, db *gorm.DB, actor Actor, storage StorageProvider, evidenceID string) (io.ReadCloser, *models.Evidence, error) {
	var evidence models.Evidence
	if err := db.First(&evidence, "id = ?", evidenceID).Error; err != nil {
		return nil, nil, notFoundOr(err, "evidence")
	}
	if _, err := EnsureCaseAccess(db, actor, evidence.CaseID); err != nil {
		return nil, nil, err
	}
	if evidence.StorageKey == "" {
		return nil, nil, NotFound("evidence %s has no stored file", evidence.Label)
	}
	if storage == nil {
		return nil, nil, Internal("evidence storage is not configured", nil)
	}
	reader, _, err := storage.Get(ctx, evidence.StorageKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, Internal("failed to open evidence file", err)
	}
	return reader, &evidence, nil
}
