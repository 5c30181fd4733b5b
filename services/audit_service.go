package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"justice_flow_go/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const auditAppendRetries = 3

// AuditEvent describes one sensitive action to record
type AuditEvent struct {
	Action       string
	ResourceType string
	ResourceID   string
	Severity     string
	Status       string
	Details      string
}

// Auditor appends hash-chained entries to the audit log.
// Writes are synchronous and best-effort: a failed write is logged and handed to
// OnError, never returned to the caller.
type Auditor struct {
	DB      *gorm.DB
	OnError func(err error, entry *models.AuditLog)

	mu sync.Mutex
}

// Audit is the process-wide auditor, set up by InitAuditor
var Audit *Auditor

// NewAuditor creates an auditor writing to db
func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{DB: db}
}

// InitAuditor initializes the global auditor
func InitAuditor(db *gorm.DB) *Auditor {
	Audit = NewAuditor(db)
	return Audit
}

// LogActivity records an event for actor. It never fails the caller.
func (a *Auditor) LogActivity(ctx context.Context, actor Actor, event AuditEvent) {
	if a == nil || a.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry := &models.AuditLog{
		ActorID:      actor.idPtr(),
		ActorName:    actor.Name,
		ActorRole:    actor.Role,
		Organization: actor.Organization(),
		Action:       event.Action,
		Method:       actor.Method,
		Endpoint:     actor.Endpoint,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		Severity:     event.Severity,
		Status:       event.Status,
		Details:      event.Details,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
	}
	if entry.Severity == "" {
		entry.Severity = models.AuditSeverityInfo
	}
	if entry.Status == "" {
		entry.Status = models.AuditStatusSuccess
	}

	if err := a.safeAppend(ctx, entry); err != nil {
		auditWriteFailures.Inc()
		log.WithFields(log.Fields{
			"action":   entry.Action,
			"resource": entry.ResourceType + ":" + entry.ResourceID,
			"actor":    entry.ActorName,
		}).Errorf("[AUDIT] Failed to write audit entry: %v", err)
		if a.OnError != nil {
			a.OnError(err, entry)
		}
	}
}

// Record audits the outcome of an operation: success, denied for Forbidden, failure otherwise
func (a *Auditor) Record(ctx context.Context, actor Actor, action, resourceType, resourceID, severity string, err error) {
	event := AuditEvent{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     severity,
		Status:       models.AuditStatusSuccess,
	}
	if err != nil {
		event.Details = err.Error()
		event.Status = models.AuditStatusFailure
		if KindOf(err) == KindForbidden {
			event.Status = models.AuditStatusDenied
			event.Severity = models.AuditSeverityWarning
		}
	}
	a.LogActivity(ctx, actor, event)
}

// LogSecurityEvent records an authentication or authorization anomaly
func (a *Auditor) LogSecurityEvent(ctx context.Context, actor Actor, eventType, details string) {
	log.Printf("[SECURITY] %s actor=%s ip=%s: %s", eventType, actor.ID, actor.IPAddress, details)
	a.LogActivity(ctx, actor, AuditEvent{
		Action:   eventType,
		Severity: models.AuditSeverityWarning,
		Status:   models.AuditStatusDenied,
		Details:  details,
	})
}

func (a *Auditor) safeAppend(ctx context.Context, entry *models.AuditLog) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit write panicked: %v", r)
		}
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	for attempt := 0; attempt < auditAppendRetries; attempt++ {
		err = a.append(ctx, entry)
		if err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return err
}

func (a *Auditor) append(ctx context.Context, entry *models.AuditLog) error {
	return a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last []models.AuditLog
		if err := tx.Order("sequence DESC").Limit(1).Find(&last).Error; err != nil {
			return err
		}

		entry.ID = ""
		entry.Sequence = 1
		entry.PrevHash = ""
		if len(last) > 0 {
			entry.Sequence = last[0].Sequence + 1
			entry.PrevHash = last[0].Hash
		}
		entry.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
		entry.Hash = HashAuditEntry(entry)

		return tx.Create(entry).Error
	})
}

// HashAuditEntry computes the chain hash of an entry from its identifying fields and PrevHash
func HashAuditEntry(e *models.AuditLog) string {
	actorID := ""
	if e.ActorID != nil {
		actorID = *e.ActorID
	}
	parts := []string{
		strconv.FormatInt(e.Sequence, 10),
		actorID,
		e.Organization,
		e.Action,
		e.Method,
		e.Endpoint,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.ResourceType,
		e.ResourceID,
		e.Status,
		e.PrevHash,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ChainReport is the result of walking the audit chain
type ChainReport struct {
	Checked  int64  `json:"checked"`
	Valid    bool   `json:"valid"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// VerifyAuditChain recomputes every hash in sequence order.
// The first surviving row anchors the chain, since the retention sweep removes its predecessors.
func VerifyAuditChain(ctx context.Context, db *gorm.DB) (*ChainReport, error) {
	report := &ChainReport{Valid: true}
	var prevHash string
	var lastSeq int64
	first := true

	for {
		var batch []models.AuditLog
		err := db.WithContext(ctx).
			Where("sequence > ?", lastSeq).
			Order("sequence ASC").
			Limit(500).
			Find(&batch).Error
		if err != nil {
			return nil, Internal("failed to read audit log", err)
		}
		if len(batch) == 0 {
			return report, nil
		}

		for i := range batch {
			entry := &batch[i]
			report.Checked++
			if !first && entry.PrevHash != prevHash {
				report.Valid = false
				report.BrokenAt = entry.Sequence
				report.Reason = "previous hash does not match"
				return report, nil
			}
			if HashAuditEntry(entry) != entry.Hash {
				report.Valid = false
				report.BrokenAt = entry.Sequence
				report.Reason = "entry hash does not match its content"
				return report, nil
			}
			first = false
			prevHash = entry.Hash
			lastSeq = entry.Sequence
		}
	}
}

// PurgeExpiredAuditLogs deletes entries older than the retention window
func PurgeExpiredAuditLogs(ctx context.Context, db *gorm.DB, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, Validation("retention must be a positive number of days")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	result := db.WithContext(models.WithRetentionSweep(ctx)).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, Internal("failed to purge audit log", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("[AUDIT] Retention sweep removed %d entries older than %s", result.RowsAffected, cutoff.Format(time.RFC3339))
	}
	return result.RowsAffected, nil
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(db *gorm.DB, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("sequence DESC").
		Find(&logs).Error
	if err != nil {
		return nil, Internal("failed to load audit history", err)
	}
	return logs, nil
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	ActorID      string
	Organization string
	ResourceType string
	Action       string
	Status       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// ListAuditLogs retrieves paginated audit logs, newest first
func ListAuditLogs(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := db.Model(&models.AuditLog{})
	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.Organization != "" {
		query = query.Where("organization = ?", filters.Organization)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		pattern := "%" + filters.SearchQuery + "%"
		query = query.Where("details LIKE ? OR actor_name LIKE ? OR action LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, Internal("failed to count audit logs", err)
	}

	var logs []models.AuditLog
	err := query.Order("sequence DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, Internal("failed to list audit logs", err)
	}
	return logs, total, nil
}

// isUniqueViolation reports whether err comes from a unique constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
