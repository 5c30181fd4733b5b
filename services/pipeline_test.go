package services

import (
	"context"
	"testing"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJudicialPipeline walks a complaint from filing to the execution of its sentence
func TestJudicialPipeline(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, notifier := newTestWorkflow(db)
	ctx := context.Background()

	citizen := ActorFromUser(fx.Citizen)
	police := ActorFromUser(fx.Police)
	prosecutor := ActorFromUser(fx.Prosecutor)
	judge := ActorFromUser(fx.Judge)
	officer := ActorFromUser(fx.PrisonOfficer)

	complaint, err := wf.FileComplaint(ctx, citizen, FileComplaintInput{
		PoliceStationID:    fx.Station.ID,
		Description:        "Shop burgled overnight, the suspect was caught by neighbours",
		ProvisionalOffence: "burglary",
	})
	require.NoError(t, err)

	_, err = wf.TransitionComplaint(ctx, police, complaint.ID, models.ComplaintStatusUnderInvestigation, "")
	require.NoError(t, err)
	_, err = wf.TransmitComplaint(ctx, police, complaint.ID, "suspect identified")
	require.NoError(t, err)

	flagrant, err := wf.FlagrantDelictIncarceration(ctx, prosecutor, complaint.ID, FlagrantDelictInput{
		PrisonID: fx.Prison.ID,
		CourtID:  fx.Court.ID,
		Detainee: DetaineeInput{NIU: "NIU-778", FirstName: "Alain", LastName: "Nkodo"},
	})
	require.NoError(t, err)
	caseID := flagrant.Case.ID

	caseRecord, err := wf.AssignToJudge(ctx, prosecutor, complaint.ID, fx.Judge.ID)
	require.NoError(t, err)
	assert.Equal(t, caseID, caseRecord.ID)

	_, err = wf.AdvanceCaseStage(ctx, judge, caseID, models.CaseStageTrial, "")
	require.NoError(t, err)

	decision, err := wf.CreateDecision(ctx, judge, DecisionInput{
		CaseID:  caseID,
		Kind:    models.DecisionKindConviction,
		Verdict: "Guilty of burglary",
	})
	require.NoError(t, err)
	_, err = wf.SignDecision(ctx, judge, decision.ID)
	require.NoError(t, err)

	sentence, err := wf.CreateSentence(ctx, judge, SentenceInput{DecisionID: decision.ID, FirmMonths: 6})
	require.NoError(t, err)
	incarceration, err := wf.ExecuteSentence(ctx, officer, sentence.ID)
	require.NoError(t, err)
	require.NotNil(t, incarceration)
	assert.Equal(t, AddCalendarDuration(incarceration.EntryDate, 0, 6, 0).Unix(), incarceration.ReleaseDate.Unix())

	var finalComplaint models.Complaint
	require.NoError(t, db.First(&finalComplaint, "id = ?", complaint.ID).Error)
	assert.Equal(t, models.ComplaintStatusUnderInstruction, finalComplaint.Status)

	var finalCase models.Case
	require.NoError(t, db.First(&finalCase, "id = ?", caseID).Error)
	assert.Equal(t, models.CaseStageExecution, finalCase.Stage)
	assert.Equal(t, models.CaseStatusClosed, finalCase.Status)

	history, err := StatusHistoryFor(db, "Complaint", complaint.ID)
	require.NoError(t, err)
	var statuses []string
	for _, h := range history {
		statuses = append(statuses, h.ToValue)
	}
	assert.Equal(t, []string{
		models.ComplaintStatusPending,
		models.ComplaintStatusUnderInvestigation,
		models.ComplaintStatusTransmitted,
		models.ComplaintStatusProcessed,
		models.ComplaintStatusUnderInstruction,
	}, statuses)

	assert.NotEmpty(t, notifier.For(fx.Citizen.ID))
	assert.NotEmpty(t, notifier.For(fx.Judge.ID))

	report, err := VerifyAuditChain(ctx, db)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.GreaterOrEqual(t, report.Checked, int64(9))

	trail, err := GetResourceAuditHistory(db, "Complaint", complaint.ID)
	require.NoError(t, err)
	var actions []string
	for _, entry := range trail {
		actions = append(actions, entry.Action)
	}
	assert.Contains(t, actions, "complaint.file")
	assert.Contains(t, actions, "complaint.flagrant_delict")
	assert.Contains(t, actions, "complaint.assign_judge")
}
