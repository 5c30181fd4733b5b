package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit severities
const (
	AuditSeverityInfo     = "info"
	AuditSeverityWarning  = "warning"
	AuditSeverityHigh     = "high"
	AuditSeverityCritical = "critical"
)

// Audit outcome statuses
const (
	AuditStatusSuccess = "success"
	AuditStatusDenied  = "denied"
	AuditStatusFailure = "failure"
)

// ErrAuditLogImmutable is returned by the hooks guarding audit rows
var ErrAuditLogImmutable = errors.New("audit log entries are append-only")

type retentionSweepKey struct{}

// WithRetentionSweep marks a context as belonging to the scheduled retention sweep,
// the only caller allowed to delete audit rows
func WithRetentionSweep(ctx context.Context) context.Context {
	return context.WithValue(ctx, retentionSweepKey{}, true)
}

func isRetentionSweep(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(retentionSweepKey{}).(bool)
	return v
}

// AuditLog is an append-only record of a sensitive action.
// Hash covers the row's identifying fields plus PrevHash, chaining rows by Sequence.
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	Sequence  int64     `gorm:"not null;uniqueIndex" json:"sequence"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"created_at"`

	// Actor identification, denormalized for historical accuracy
	ActorID      *string `gorm:"type:uuid;index:idx_audit_actor" json:"actor_id,omitempty"`
	ActorName    string  `json:"actor_name,omitempty"`
	ActorRole    string  `json:"actor_role,omitempty"`
	Organization string  `json:"organization,omitempty"` // court, station or prison the actor acts for

	Action   string `gorm:"not null;index:idx_audit_action" json:"action"`
	Method   string `json:"method,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	Severity string `gorm:"not null;default:info" json:"severity"`
	Status   string `gorm:"not null;default:success" json:"status"`
	Details  string `gorm:"type:text" json:"details,omitempty"`

	ResourceType string `gorm:"index:idx_audit_resource" json:"resource_type,omitempty"`
	ResourceID   string `gorm:"index:idx_audit_resource" json:"resource_id,omitempty"`

	PrevHash string `gorm:"size:64" json:"prev_hash"`
	Hash     string `gorm:"size:64;not null" json:"hash"`
}

// BeforeCreate generates the UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit logs
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// BeforeDelete prevents deletion outside the retention sweep
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	if isRetentionSweep(tx.Statement.Context) {
		return nil
	}
	return ErrAuditLogImmutable
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
