package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCasesHandler(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)
	caseRecord := openCase(t, fx)

	_, c, rec := setupEcho(http.MethodGet, "/api/cases?stage=prosecution", nil)
	asActor(c, fx.Prosecutor)
	require.NoError(t, ListCasesHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items []models.Case `json:"items"`
		Total int64         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, caseRecord.Reference, page.Items[0].Reference)

	_, c, rec = setupEcho(http.MethodGet, "/api/cases", nil)
	asActor(c, fx.Judge)
	require.NoError(t, ListCasesHandler(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Zero(t, page.Total)
}

func TestGetCaseHandler(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)
	caseRecord := openCase(t, fx)

	_, c, rec := setupEcho(http.MethodGet, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Prosecutor)
	require.NoError(t, GetCaseHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"history"`)

	_, c, _ = setupEcho(http.MethodGet, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Police)
	assert.Equal(t, http.StatusForbidden, statusOf(GetCaseHandler(c)))
}

func TestAdvanceStageHandler(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)
	caseRecord := openCase(t, fx)

	advance := func(stage string) error {
		_, c, _ := setupEcho(http.MethodPost, "/", strings.NewReader(`{"stage":"`+stage+`"}`))
		c.SetParamNames("id")
		c.SetParamValues(caseRecord.ID)
		asActor(c, fx.Prosecutor)
		return AdvanceStageHandler(c)
	}

	require.NoError(t, advance(models.CaseStageInstruction))
	assert.Equal(t, http.StatusConflict, statusOf(advance(models.CaseStagePoliceInvestigation)))
	assert.Equal(t, http.StatusBadRequest, statusOf(advance("")))
}

func TestCaseNoteHandlers(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)
	caseRecord := openCase(t, fx)

	_, c, rec := setupEcho(http.MethodPost, "/", strings.NewReader(`{"content":"Suspect has prior convictions","confidential":true}`))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Prosecutor)
	require.NoError(t, CreateNoteHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var note models.CaseNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))
	assert.True(t, note.Confidential)

	_, c, _ = setupEcho(http.MethodPost, "/", strings.NewReader(`{"content":"x","author_id":"forged"}`))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Prosecutor)
	assert.Equal(t, http.StatusBadRequest, statusOf(CreateNoteHandler(c)))

	_, c, rec = setupEcho(http.MethodGet, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Admin)
	require.NoError(t, ListNotesHandler(c))
	var notes []models.CaseNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	assert.Len(t, notes, 1)
}

func TestAssignUserHandler(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)
	caseRecord := openCase(t, fx)

	body := `{"user_id":"` + fx.Judge.ID + `","role":"judge_instruction"}`
	_, c, rec := setupEcho(http.MethodPost, "/", strings.NewReader(body))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Prosecutor)
	require.NoError(t, AssignUserHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	assigned, err := services.IsAssigned(database, caseRecord.ID, fx.Judge.ID)
	require.NoError(t, err)
	assert.True(t, assigned)

	_, c, _ = setupEcho(http.MethodPost, "/", strings.NewReader(`{"user_id":"not-a-uuid","role":"clerk"}`))
	c.SetParamNames("id")
	c.SetParamValues(caseRecord.ID)
	asActor(c, fx.Prosecutor)
	assert.Equal(t, http.StatusBadRequest, statusOf(AssignUserHandler(c)))
}

func TestExportCasesHandler(t *testing.T) {
	database := setupTestDB(t)
	fx := seedHandlerFixtures(t, database)
	openCase(t, fx)

	_, c, rec := setupEcho(http.MethodGet, "/api/cases/export.xlsx", nil)
	asActor(c, fx.Admin)
	require.NoError(t, ExportCasesHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}
