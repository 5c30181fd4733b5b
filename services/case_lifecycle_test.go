package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openInstructionCase takes a transmitted complaint to a case under instruction by fx.Judge
func openInstructionCase(t *testing.T, db *gorm.DB, fx *fixtures, wf *Workflow) *models.Case {
	t.Helper()
	c := fx.complaint(t, db, models.ComplaintStatusTransmitted)
	caseRecord, err := wf.AssignToJudge(context.Background(), ActorFromUser(fx.Prosecutor), c.ID, fx.Judge.ID)
	require.NoError(t, err)
	return caseRecord
}

func TestCaseAccessRequiresAssignment(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	caseRecord := openInstructionCase(t, db, fx, wf)

	_, err := GetCase(db, ActorFromUser(fx.Judge), caseRecord.ID)
	assert.NoError(t, err)
	_, err = GetCase(db, ActorFromUser(fx.Admin), caseRecord.ID)
	assert.NoError(t, err)

	_, err = GetCase(db, ActorFromUser(fx.Police), caseRecord.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = GetCase(db, ActorFromUser(fx.Citizen), caseRecord.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = GetCase(db, ActorFromUser(fx.Judge), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, total, err := ListCases(db, ActorFromUser(fx.Judge), CaseFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	_, total, err = ListCases(db, ActorFromUser(fx.Police), CaseFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = ListCases(db, ActorFromUser(fx.Admin), CaseFilter{Stage: "INSTRUCTION"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAdvanceCaseStage(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, notifier := newTestWorkflow(db)
	ctx := context.Background()
	judge := ActorFromUser(fx.Judge)
	caseRecord := openInstructionCase(t, db, fx, wf)

	updated, err := wf.AdvanceCaseStage(ctx, judge, caseRecord.ID, models.CaseStageTrial, "referred to trial")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStageTrial, updated.Stage)
	assert.NotEmpty(t, notifier.For(fx.Citizen.ID))

	_, err = wf.AdvanceCaseStage(ctx, judge, caseRecord.ID, models.CaseStageProsecution, "")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = wf.AdvanceCaseStage(ctx, judge, caseRecord.ID, models.CaseStageTrial, "")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = wf.AdvanceCaseStage(ctx, judge, caseRecord.ID, "limbo", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = wf.AdvanceCaseStage(ctx, ActorFromUser(fx.Police), caseRecord.ID, models.CaseStageAppeal, "")
	assert.ErrorIs(t, err, ErrForbidden)

	archived, err := wf.AdvanceCaseStage(ctx, judge, caseRecord.ID, models.CaseStageArchived, "")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusArchived, archived.Status)

	history, err := StatusHistoryFor(db, "Case", caseRecord.ID)
	require.NoError(t, err)
	var stages []string
	for _, h := range history {
		if h.Field == "stage" {
			stages = append(stages, h.ToValue)
		}
	}
	assert.Equal(t, []string{models.CaseStageInstruction, models.CaseStageTrial, models.CaseStageArchived}, stages)
}

func TestAssignUser(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, notifier := newTestWorkflow(db)
	ctx := context.Background()
	judge := ActorFromUser(fx.Judge)
	caseRecord := openInstructionCase(t, db, fx, wf)

	assignment, err := wf.AssignUser(ctx, judge, caseRecord.ID, fx.Clerk.ID, "CLERK")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentClerk, assignment.Role)
	require.NotNil(t, assignment.User)
	assert.Len(t, notifier.For(fx.Clerk.ID), 1)

	again, err := wf.AssignUser(ctx, judge, caseRecord.ID, fx.Clerk.ID, models.AssignmentClerk)
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, again.ID)

	_, err = wf.AssignUser(ctx, judge, caseRecord.ID, fx.Citizen.ID, models.AssignmentLawyer)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = wf.AssignUser(ctx, judge, caseRecord.ID, fx.Clerk.ID, "janitor")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = wf.AssignUser(ctx, ActorFromUser(fx.Clerk), caseRecord.ID, fx.Police.ID, models.AssignmentPoliceInvestigator)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = GetCase(db, ActorFromUser(fx.Clerk), caseRecord.ID)
	require.NoError(t, err)

	require.NoError(t, wf.RemoveAssignment(ctx, judge, caseRecord.ID, assignment.ID))
	_, err = GetCase(db, ActorFromUser(fx.Clerk), caseRecord.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, wf.RemoveAssignment(ctx, judge, caseRecord.ID, assignment.ID), ErrNotFound)
}

func TestCaseNotes(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	judge := ActorFromUser(fx.Judge)
	clerk := ActorFromUser(fx.Clerk)
	caseRecord := openInstructionCase(t, db, fx, wf)
	_, err := wf.AssignUser(ctx, judge, caseRecord.ID, fx.Clerk.ID, models.AssignmentClerk)
	require.NoError(t, err)

	public, err := wf.CreateNote(ctx, clerk, caseRecord.ID, "Summons sent to both parties", false)
	require.NoError(t, err)
	secret, err := wf.CreateNote(ctx, judge, caseRecord.ID, "Witness may be intimidated", true)
	require.NoError(t, err)
	_, err = wf.CreateNote(ctx, judge, caseRecord.ID, "<b></b>", false)
	assert.ErrorIs(t, err, ErrValidation)

	clerkNotes, err := ListNotes(db, clerk, caseRecord.ID)
	require.NoError(t, err)
	require.Len(t, clerkNotes, 1)
	assert.Equal(t, public.ID, clerkNotes[0].ID)

	judgeNotes, err := ListNotes(db, judge, caseRecord.ID)
	require.NoError(t, err)
	assert.Len(t, judgeNotes, 2)

	_, err = wf.UpdateNote(ctx, clerk, caseRecord.ID, secret.ID, "edited")
	assert.ErrorIs(t, err, ErrForbidden)
	edited, err := wf.UpdateNote(ctx, clerk, caseRecord.ID, public.ID, "Summons served")
	require.NoError(t, err)
	assert.Equal(t, "Summons served", edited.Content)

	assert.ErrorIs(t, wf.DeleteNote(ctx, clerk, caseRecord.ID, secret.ID), ErrForbidden)
	require.NoError(t, wf.DeleteNote(ctx, judge, caseRecord.ID, secret.ID))
	judgeNotes, err = ListNotes(db, judge, caseRecord.ID)
	require.NoError(t, err)
	assert.Len(t, judgeNotes, 1)
}

func TestHearingsAndWarrants(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	judge := ActorFromUser(fx.Judge)
	caseRecord := openInstructionCase(t, db, fx, wf)

	t.Run("hearings are scheduled in the future and closed once", func(t *testing.T) {
		_, err := wf.ScheduleHearing(ctx, judge, caseRecord.ID, HearingInput{ScheduledAt: time.Now().Add(-time.Hour)})
		assert.ErrorIs(t, err, ErrValidation)

		hearing, err := wf.ScheduleHearing(ctx, judge, caseRecord.ID, HearingInput{
			ScheduledAt: time.Now().Add(72 * time.Hour),
			Room:        "Salle 2",
		})
		require.NoError(t, err)
		assert.Equal(t, models.HearingStatusScheduled, hearing.Status)

		held, err := wf.UpdateHearingStatus(ctx, judge, caseRecord.ID, hearing.ID, "HELD", "Parties present")
		require.NoError(t, err)
		assert.Equal(t, models.HearingStatusHeld, held.Status)

		_, err = wf.UpdateHearingStatus(ctx, judge, caseRecord.ID, hearing.ID, models.HearingStatusCancelled, "")
		assert.ErrorIs(t, err, ErrConflict)
		_, err = wf.UpdateHearingStatus(ctx, judge, caseRecord.ID, hearing.ID, models.HearingStatusScheduled, "")
		assert.ErrorIs(t, err, ErrValidation)

		hearings, err := ListHearings(db, judge, caseRecord.ID)
		require.NoError(t, err)
		assert.Len(t, hearings, 1)
	})

	t.Run("warrants are executed by an assigned officer", func(t *testing.T) {
		_, err := wf.IssueWarrant(ctx, judge, caseRecord.ID, WarrantInput{Kind: "summons", TargetName: "X"})
		assert.ErrorIs(t, err, ErrValidation)

		warrant, err := wf.IssueWarrant(ctx, judge, caseRecord.ID, WarrantInput{
			Kind:       models.WarrantKindArrest,
			TargetName: "Paul Etoa",
			Reason:     "Failed to appear",
		})
		require.NoError(t, err)

		police := ActorFromUser(fx.Police)
		_, err = wf.ExecuteWarrant(ctx, police, caseRecord.ID, warrant.ID)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = wf.AssignUser(ctx, judge, caseRecord.ID, fx.Police.ID, models.AssignmentPoliceInvestigator)
		require.NoError(t, err)
		executed, err := wf.ExecuteWarrant(ctx, police, caseRecord.ID, warrant.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WarrantStatusExecuted, executed.Status)

		_, err = wf.ExecuteWarrant(ctx, police, caseRecord.ID, warrant.ID)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestDecisionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, notifier := newTestWorkflow(db)
	ctx := context.Background()
	judge := ActorFromUser(fx.Judge)
	caseRecord := openInstructionCase(t, db, fx, wf)

	_, err := wf.CreateDecision(ctx, judge, DecisionInput{CaseID: caseRecord.ID, Verdict: " "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = wf.CreateDecision(ctx, judge, DecisionInput{CaseID: caseRecord.ID, Verdict: "Guilty", Kind: "pardon"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = wf.CreateDecision(ctx, ActorFromUser(fx.Prosecutor), DecisionInput{CaseID: caseRecord.ID, Verdict: "Guilty"})
	assert.ErrorIs(t, err, ErrForbidden)

	decision, err := wf.CreateDecision(ctx, judge, DecisionInput{CaseID: caseRecord.ID, Verdict: "Guilty of theft"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(decision.DecisionNumber, "DEC-"))
	assert.Equal(t, models.DecisionKindOther, decision.Kind)
	assert.Equal(t, fx.Court.ID, decision.CourtID)
	require.NotNil(t, decision.JudgeID)
	assert.Equal(t, fx.Judge.ID, *decision.JudgeID)

	kind := models.DecisionKindConviction
	updated, err := wf.UpdateDecision(ctx, judge, decision.ID, DecisionUpdate{Kind: &kind})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionKindConviction, updated.Kind)
	_, err = wf.UpdateDecision(ctx, judge, decision.ID, DecisionUpdate{})
	assert.ErrorIs(t, err, ErrValidation)

	bailiff := ActorFromUser(fx.Bailiff)
	_, err = wf.AssignUser(ctx, judge, caseRecord.ID, fx.Bailiff.ID, models.AssignmentBailiff)
	require.NoError(t, err)
	_, err = wf.SignifyDecision(ctx, bailiff, decision.ID, SignificationInput{PartyName: "Paul Etoa"})
	assert.ErrorIs(t, err, ErrConflict)

	signed, err := wf.SignDecision(ctx, judge, decision.ID)
	require.NoError(t, err)
	assert.True(t, signed.IsSigned())
	assert.Len(t, notifier.For(fx.Citizen.ID), 1)

	var reloadedCase models.Case
	require.NoError(t, db.First(&reloadedCase, "id = ?", caseRecord.ID).Error)
	assert.Equal(t, models.CaseStageExecution, reloadedCase.Stage)
	assert.Equal(t, models.CaseStatusClosed, reloadedCase.Status)
	assert.NotNil(t, reloadedCase.ClosedAt)

	t.Run("signed decisions are frozen", func(t *testing.T) {
		verdict := "Not guilty"
		_, err := wf.UpdateDecision(ctx, judge, decision.ID, DecisionUpdate{Verdict: &verdict})
		assert.ErrorIs(t, err, ErrConflict)
		_, err = wf.SignDecision(ctx, judge, decision.ID)
		assert.ErrorIs(t, err, ErrConflict)

		got, err := GetDecision(db, judge, decision.ID)
		require.NoError(t, err)
		assert.Equal(t, "Guilty of theft", got.Verdict)
	})

	t.Run("no new decision on a closed case", func(t *testing.T) {
		_, err := wf.CreateDecision(ctx, judge, DecisionInput{CaseID: caseRecord.ID, Verdict: "Second thoughts"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("bailiff serves the signed decision", func(t *testing.T) {
		_, err := wf.SignifyDecision(ctx, bailiff, decision.ID, SignificationInput{})
		assert.ErrorIs(t, err, ErrValidation)

		s, err := wf.SignifyDecision(ctx, bailiff, decision.ID, SignificationInput{PartyName: "Paul Etoa", Method: "in person"})
		require.NoError(t, err)
		assert.Equal(t, fx.Bailiff.ID, s.BailiffID)

		got, err := GetDecision(db, judge, decision.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.SignifiedAt)
	})
}

func TestAddCalendarDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), AddCalendarDuration(start, 1, 2, 10))
	assert.Equal(t, start, AddCalendarDuration(start, 0, 0, 0))

	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), AddCalendarDuration(leap, 1, 0, 0))
}

func TestSentenceExecution(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	prosecutor := ActorFromUser(fx.Prosecutor)
	judge := ActorFromUser(fx.Judge)

	c := fx.complaint(t, db, models.ComplaintStatusReceived)
	flagrant, err := wf.FlagrantDelictIncarceration(ctx, prosecutor, c.ID, FlagrantDelictInput{
		PrisonID: fx.Prison.ID,
		CourtID:  fx.Court.ID,
		Detainee: DetaineeInput{FirstName: "Jean", LastName: "Mballa"},
	})
	require.NoError(t, err)
	caseID := flagrant.Case.ID

	entry := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.Incarceration{}).Where("id = ?", flagrant.Incarceration.ID).
		Update("entry_date", entry).Error)

	_, err = wf.AssignToJudge(ctx, prosecutor, c.ID, fx.Judge.ID)
	require.NoError(t, err)
	decision, err := wf.CreateDecision(ctx, judge, DecisionInput{CaseID: caseID, Verdict: "Guilty", Kind: models.DecisionKindConviction})
	require.NoError(t, err)

	_, err = wf.CreateSentence(ctx, judge, SentenceInput{DecisionID: decision.ID, FirmYears: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = wf.SignDecision(ctx, judge, decision.ID)
	require.NoError(t, err)

	_, err = wf.CreateSentence(ctx, judge, SentenceInput{DecisionID: decision.ID, FirmDays: -1})
	assert.ErrorIs(t, err, ErrValidation)

	sentence, err := wf.CreateSentence(ctx, judge, SentenceInput{
		DecisionID: decision.ID,
		FirmYears:  1,
		FirmMonths: 2,
		FirmDays:   10,
		FineAmount: 50000,
	})
	require.NoError(t, err)

	var detainee models.Detainee
	require.NoError(t, db.First(&detainee, "id = ?", flagrant.Detainee.ID).Error)
	assert.Equal(t, models.DetaineeStatusConvicted, detainee.Status)

	_, err = wf.ExecuteSentence(ctx, judge, sentence.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	officer := ActorFromUser(fx.PrisonOfficer)
	incarceration, err := wf.ExecuteSentence(ctx, officer, sentence.ID)
	require.NoError(t, err)
	require.NotNil(t, incarceration)
	assert.Equal(t, models.IncarcerationStatusConvicted, incarceration.Status)
	require.NotNil(t, incarceration.ReleaseDate)
	assert.Equal(t, "2025-03-11", incarceration.ReleaseDate.UTC().Format("2006-01-02"))
	assert.Contains(t, incarceration.Observation, decision.DecisionNumber)

	_, err = wf.ExecuteSentence(ctx, officer, sentence.ID)
	assert.ErrorIs(t, err, ErrConflict)

	sentences, err := ListCaseSentences(db, judge, caseID)
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.NotNil(t, sentences[0].ExecutedAt)
}

func TestSentenceExecutionAccess(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	prosecutor := ActorFromUser(fx.Prosecutor)
	judge := ActorFromUser(fx.Judge)

	c := fx.complaint(t, db, models.ComplaintStatusReceived)
	flagrant, err := wf.FlagrantDelictIncarceration(ctx, prosecutor, c.ID, FlagrantDelictInput{
		PrisonID: fx.Prison.ID,
		CourtID:  fx.Court.ID,
		Detainee: DetaineeInput{FirstName: "Luc", LastName: "Abena"},
	})
	require.NoError(t, err)
	_, err = wf.AssignToJudge(ctx, prosecutor, c.ID, fx.Judge.ID)
	require.NoError(t, err)
	decision, err := wf.CreateDecision(ctx, judge, DecisionInput{CaseID: flagrant.Case.ID, Verdict: "Guilty", Kind: models.DecisionKindConviction})
	require.NoError(t, err)
	_, err = wf.SignDecision(ctx, judge, decision.ID)
	require.NoError(t, err)
	sentence, err := wf.CreateSentence(ctx, judge, SentenceInput{DecisionID: decision.ID, FirmMonths: 3})
	require.NoError(t, err)

	assertStillPreventive := func(t *testing.T) {
		t.Helper()
		var incarceration models.Incarceration
		require.NoError(t, db.First(&incarceration, "id = ?", flagrant.Incarceration.ID).Error)
		assert.Equal(t, models.IncarcerationStatusPreventive, incarceration.Status)

		var reloaded models.Sentence
		require.NoError(t, db.First(&reloaded, "id = ?", sentence.ID).Error)
		assert.Nil(t, reloaded.ExecutedAt)
	}

	t.Run("unassigned prosecutor", func(t *testing.T) {
		outsider := createTestUser(t, db, models.RoleProsecutor, func(u *models.User) { u.CourtID = &fx.Court.ID })
		_, err := wf.ExecuteSentence(ctx, ActorFromUser(outsider), sentence.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assertStillPreventive(t)
	})

	t.Run("officer of another prison", func(t *testing.T) {
		other := &models.Prison{Name: "Prison de Kondengui", City: "Yaoundé", Capacity: 50}
		require.NoError(t, db.Create(other).Error)
		officer := createTestUser(t, db, models.RolePrisonOfficer, func(u *models.User) { u.PrisonID = &other.ID })
		_, err := wf.ExecuteSentence(ctx, ActorFromUser(officer), sentence.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assertStillPreventive(t)
	})

	t.Run("assigned prosecutor", func(t *testing.T) {
		incarceration, err := wf.ExecuteSentence(ctx, prosecutor, sentence.ID)
		require.NoError(t, err)
		require.NotNil(t, incarceration)
		assert.Equal(t, models.IncarcerationStatusConvicted, incarceration.Status)
	})
}

func TestIncarcerationLifecycle(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	officer := ActorFromUser(fx.PrisonOfficer)

	detainee, err := FindOrCreateDetainee(db, DetaineeInput{FirstName: "Paul", LastName: "Etoa"})
	require.NoError(t, err)
	_, err = FindOrCreateDetainee(db, DetaineeInput{NIU: "NIU-404"})
	assert.ErrorIs(t, err, ErrValidation)

	other := &models.Prison{Name: "Prison de New-Bell", City: "Douala", Capacity: 10}
	require.NoError(t, db.Create(other).Error)
	_, err = wf.CreateIncarceration(ctx, officer, IncarcerationInput{DetaineeID: detainee.ID, PrisonID: other.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	incarceration, err := wf.CreateIncarceration(ctx, officer, IncarcerationInput{DetaineeID: detainee.ID, PrisonID: fx.Prison.ID})
	require.NoError(t, err)
	assert.Equal(t, models.IncarcerationStatusPreventive, incarceration.Status)
	assert.False(t, incarceration.EntryDate.IsZero())

	_, err = wf.CreateIncarceration(ctx, officer, IncarcerationInput{DetaineeID: detainee.ID, PrisonID: fx.Prison.ID})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = wf.CreateIncarceration(ctx, officer, IncarcerationInput{DetaineeID: detainee.ID, PrisonID: fx.Prison.ID, Status: models.IncarcerationStatusReleased})
	assert.ErrorIs(t, err, ErrValidation)

	rows, err := PrisonOccupancy(db)
	require.NoError(t, err)
	for _, row := range rows {
		if row.PrisonID == fx.Prison.ID {
			assert.Equal(t, int64(1), row.Preventive)
			assert.Equal(t, int64(1), row.Total)
			assert.InDelta(t, 0.5, row.Rate, 0.001)
		} else {
			assert.Zero(t, row.Total)
		}
	}

	list, err := ListIncarcerations(db, officer, IncarcerationFilter{PrisonID: other.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Detainee)
	assert.Equal(t, "Etoa", list[0].Detainee.LastName)
	_, err = ListIncarcerations(db, ActorFromUser(fx.Police), IncarcerationFilter{})
	assert.ErrorIs(t, err, ErrForbidden)

	released, err := wf.ReleaseIncarceration(ctx, officer, incarceration.ID, time.Time{}, "end of detention")
	require.NoError(t, err)
	assert.Equal(t, models.IncarcerationStatusReleased, released.Status)
	assert.NotNil(t, released.ActualReleaseDate)

	var reloaded models.Detainee
	require.NoError(t, db.First(&reloaded, "id = ?", detainee.ID).Error)
	assert.Equal(t, models.DetaineeStatusReleased, reloaded.Status)

	_, err = wf.RecordEscape(ctx, officer, incarceration.ID, time.Time{}, "")
	assert.ErrorIs(t, err, ErrConflict)
}
