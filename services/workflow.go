package services

import (
	"context"
	"fmt"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

// Workflow drives complaints and cases through the judicial pipeline.
// Every multi-entity operation runs in one transaction; audit and
// notifications happen after commit and never fail the operation.
type Workflow struct {
	DB       *gorm.DB
	Audit    *Auditor
	Notifier Notifier
}

// NewWorkflow creates a workflow engine over db
func NewWorkflow(db *gorm.DB, auditor *Auditor, notifier Notifier) *Workflow {
	return &Workflow{DB: db, Audit: auditor, Notifier: notifier}
}

type transitionKey struct {
	from string
	to   string
}

// complaintTransitions lists the legal complaint status edges and who may take them.
// Admins may take any listed edge.
var complaintTransitions = map[transitionKey][]string{
	{models.ComplaintStatusPending, models.ComplaintStatusReceived}:               {models.RolePolice},
	{models.ComplaintStatusPending, models.ComplaintStatusUnderInvestigation}:     {models.RolePolice},
	{models.ComplaintStatusReceived, models.ComplaintStatusUnderInvestigation}:    {models.RolePolice},
	{models.ComplaintStatusPending, models.ComplaintStatusTransmitted}:            {models.RolePolice},
	{models.ComplaintStatusReceived, models.ComplaintStatusTransmitted}:           {models.RolePolice},
	{models.ComplaintStatusUnderInvestigation, models.ComplaintStatusTransmitted}: {models.RolePolice},
	{models.ComplaintStatusPending, models.ComplaintStatusProcessed}:              {models.RoleProsecutor},
	{models.ComplaintStatusReceived, models.ComplaintStatusProcessed}:             {models.RoleProsecutor},
	{models.ComplaintStatusUnderInvestigation, models.ComplaintStatusProcessed}:   {models.RoleProsecutor},
	{models.ComplaintStatusTransmitted, models.ComplaintStatusProcessed}:          {models.RoleProsecutor},
	{models.ComplaintStatusTransmitted, models.ComplaintStatusUnderInstruction}:   {models.RoleProsecutor, models.RoleJudge},
	{models.ComplaintStatusProcessed, models.ComplaintStatusUnderInstruction}:     {models.RoleProsecutor, models.RoleJudge},
	{models.ComplaintStatusPending, models.ComplaintStatusClosed}:                 {models.RoleProsecutor},
	{models.ComplaintStatusReceived, models.ComplaintStatusClosed}:                {models.RoleProsecutor},
	{models.ComplaintStatusUnderInvestigation, models.ComplaintStatusClosed}:      {models.RoleProsecutor},
	{models.ComplaintStatusTransmitted, models.ComplaintStatusClosed}:             {models.RoleProsecutor},
	{models.ComplaintStatusProcessed, models.ComplaintStatusClosed}:               {models.RoleProsecutor},
	{models.ComplaintStatusUnderInstruction, models.ComplaintStatusDismissed}:     {models.RoleJudge},
	{models.ComplaintStatusUnderInstruction, models.ComplaintStatusClosed}:        {models.RoleJudge},
}

// workflowOnlyStatuses are reached only as part of a larger operation: processed
// when prosecution opens the case, under_instruction when a judge is assigned.
var workflowOnlyStatuses = map[string]string{
	models.ComplaintStatusProcessed:        "prosecution",
	models.ComplaintStatusUnderInstruction: "judge assignment",
}

// checkDirectTransition is CheckComplaintTransition for a bare status change,
// refusing the statuses that carry a case or an assignment with them
func checkDirectTransition(from, to, role string) error {
	to = models.NormalizeStatus(to)
	if operation, ok := workflowOnlyStatuses[to]; ok {
		return Validation("a complaint becomes %s only through %s", to, operation)
	}
	return CheckComplaintTransition(from, to, role)
}

// CheckComplaintTransition validates a status change against the transition table
func CheckComplaintTransition(from, to, role string) error {
	from = models.NormalizeStatus(from)
	to = models.NormalizeStatus(to)

	if !models.IsValidComplaintStatus(to) {
		return Validation("unknown complaint status %q", to)
	}
	if models.IsTerminalComplaintStatus(from) {
		return Conflict("complaint is already %s", from)
	}
	if from == to {
		return Conflict("complaint is already %s", from)
	}

	roles, ok := complaintTransitions[transitionKey{from, to}]
	if !ok {
		return Conflict("illegal complaint transition from %s to %s", from, to)
	}
	if role == models.RoleAdmin {
		return nil
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return Forbidden("role %q cannot move a complaint from %s to %s", role, from, to)
}

// AllowedComplaintTransitions lists the statuses a role may move a complaint to directly from its current status
func AllowedComplaintTransitions(from, role string) []string {
	from = models.NormalizeStatus(from)
	var out []string
	for _, to := range []string{
		models.ComplaintStatusReceived, models.ComplaintStatusUnderInvestigation,
		models.ComplaintStatusTransmitted, models.ComplaintStatusProcessed,
		models.ComplaintStatusUnderInstruction, models.ComplaintStatusClosed,
		models.ComplaintStatusDismissed,
	} {
		if checkDirectTransition(from, to, role) == nil {
			out = append(out, to)
		}
	}
	return out
}

// checkStageAdvance enforces that a case stage never moves backwards
func checkStageAdvance(from, to string) error {
	if !models.IsValidCaseStage(to) {
		return Validation("unknown case stage %q", to)
	}
	if models.CaseStageRank(to) < models.CaseStageRank(from) {
		return Conflict("case stage cannot move back from %s to %s", from, to)
	}
	return nil
}

// updateVersioned applies updates only if the row still carries the expected version
func updateVersioned(tx *gorm.DB, model interface{}, id string, version int, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	result := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if result.Error != nil {
		return storeErr(result.Error, "failed to update record")
	}
	if result.RowsAffected == 0 {
		return Conflict("record %s was modified concurrently, reload and retry", id)
	}
	return nil
}

func setComplaintStatus(tx *gorm.DB, actor Actor, complaint *models.Complaint, to, note string) error {
	from := complaint.Status
	err := updateVersioned(tx, &models.Complaint{}, complaint.ID, complaint.Version, map[string]interface{}{
		"status": to,
	})
	if err != nil {
		return err
	}
	complaint.Status = to
	complaint.Version++
	return recordHistory(tx, actor, "Complaint", complaint.ID, "status", from, to, note)
}

// setCaseState moves a case to a new stage and status, keeping the stage monotonic
func setCaseState(tx *gorm.DB, actor Actor, caseRecord *models.Case, stage, status, note string) error {
	if err := checkStageAdvance(caseRecord.Stage, stage); err != nil {
		return err
	}
	updates := map[string]interface{}{
		"stage":  stage,
		"status": status,
	}
	if status == models.CaseStatusClosed && caseRecord.ClosedAt == nil {
		updates["closed_at"] = time.Now()
	}
	if err := updateVersioned(tx, &models.Case{}, caseRecord.ID, caseRecord.Version, updates); err != nil {
		return err
	}

	fromStage, fromStatus := caseRecord.Stage, caseRecord.Status
	caseRecord.Stage = stage
	caseRecord.Status = status
	caseRecord.Version++

	if fromStage != stage {
		if err := recordHistory(tx, actor, "Case", caseRecord.ID, "stage", fromStage, stage, note); err != nil {
			return err
		}
	}
	if fromStatus != status {
		if err := recordHistory(tx, actor, "Case", caseRecord.ID, "status", fromStatus, status, note); err != nil {
			return err
		}
	}
	return nil
}

func recordHistory(tx *gorm.DB, actor Actor, entityType, entityID, field, from, to, note string) error {
	entry := models.StatusHistory{
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		FromValue:  from,
		ToValue:    to,
		ActorID:    actor.idPtr(),
		ActorRole:  actor.Role,
		Note:       note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return Internal(fmt.Sprintf("failed to record %s history", entityType), err)
	}
	if pending := pendingFrom(tx); pending != nil {
		pending.add(entityType, to)
	} else {
		countTransition(entityType, to)
	}
	return nil
}

type pendingTransitionsKey struct{}

type pendingTransition struct {
	entity string
	to     string
}

// pendingTransitions holds the transitions of an open transaction until it commits
type pendingTransitions struct {
	entries []pendingTransition
}

func pendingFrom(tx *gorm.DB) *pendingTransitions {
	if tx.Statement == nil || tx.Statement.Context == nil {
		return nil
	}
	pending, _ := tx.Statement.Context.Value(pendingTransitionsKey{}).(*pendingTransitions)
	return pending
}

func (p *pendingTransitions) add(entity, to string) {
	p.entries = append(p.entries, pendingTransition{entity: entity, to: to})
}

func (p *pendingTransitions) flush() {
	for _, e := range p.entries {
		countTransition(e.entity, e.to)
	}
	p.entries = nil
}

// transaction runs fn in a database transaction. Transition metrics recorded
// inside it are only counted once it commits.
func (w *Workflow) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pending := &pendingTransitions{}
	ctx = context.WithValue(ctx, pendingTransitionsKey{}, pending)
	if err := w.db(ctx).Transaction(fn); err != nil {
		return err
	}
	pending.flush()
	return nil
}

// StatusHistoryFor returns the transitions recorded for an entity, oldest first
func StatusHistoryFor(db *gorm.DB, entityType, entityID string) ([]models.StatusHistory, error) {
	var history []models.StatusHistory
	err := db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&history).Error
	if err != nil {
		return nil, Internal("failed to load status history", err)
	}
	return history, nil
}

// finish audits and counts the outcome of an operation, returning err unchanged
func (w *Workflow) finish(ctx context.Context, actor Actor, action, resourceType, resourceID, severity string, err error) error {
	countFailure(action, err)
	w.Audit.Record(ctx, actor, action, resourceType, resourceID, severity, err)
	return err
}

func (w *Workflow) notify(ctx context.Context, n Notice) {
	if w.Notifier == nil || n.UserID == "" {
		return
	}
	w.Notifier.Notify(ctx, n)
}

func (w *Workflow) db(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.DB.WithContext(ctx)
}
