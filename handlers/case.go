package handlers

import (
	"net/http"
	"time"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

type stageRequest struct {
	Stage string `json:"stage" validate:"required"`
	Note  string `json:"note" validate:"max=2000"`
}

type assignmentRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required"`
}

type caseNoteRequest struct {
	Content      string `json:"content" validate:"required,max=20000"`
	Confidential bool   `json:"confidential"`
}

type caseNoteUpdateRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}

type hearingRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Room        string    `json:"room" validate:"max=120"`
	Kind        string    `json:"kind" validate:"max=64"`
	Notes       string    `json:"notes" validate:"max=2000"`
}

type hearingStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type warrantRequest struct {
	Kind       string `json:"kind" validate:"required"`
	TargetName string `json:"target_name" validate:"required,max=200"`
	Reason     string `json:"reason" validate:"max=2000"`
}

func caseFilter(c echo.Context) services.CaseFilter {
	page, size := paging(c)
	return services.CaseFilter{
		Status:   c.QueryParam("status"),
		Stage:    c.QueryParam("stage"),
		Priority: c.QueryParam("priority"),
		CourtID:  c.QueryParam("court_id"),
		Page:     page,
		PageSize: size,
	}
}

// ListCasesHandler lists the cases the caller is assigned to
func ListCasesHandler(c echo.Context) error {
	filter := caseFilter(c)
	cases, total, err := services.ListCases(db.DB, actorFrom(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PageResponse{Items: cases, Total: total, Page: filter.Page, PageSize: filter.PageSize})
}

// ExportCasesHandler downloads the visible cases as a spreadsheet
func ExportCasesHandler(c echo.Context) error {
	cases, err := services.ExportCases(db.DB, actorFrom(c), caseFilter(c))
	if err != nil {
		return err
	}
	workbook, err := services.BuildCaseExportWorkbook(cases)
	if err != nil {
		return services.Internal("failed to build export", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="cases-`+time.Now().Format("20060102")+`.xlsx"`)
	return c.Blob(http.StatusOK, services.XLSXContentType, workbook)
}

// GetCaseHandler returns a case with its status history
func GetCaseHandler(c echo.Context) error {
	caseRecord, err := services.GetCase(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	history, err := services.StatusHistoryFor(db.DB, "Case", caseRecord.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"case": caseRecord, "history": history})
}

// AdvanceStageHandler moves a case forward in the pipeline
func AdvanceStageHandler(c echo.Context) error {
	var req stageRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	caseRecord, err := newWorkflow().AdvanceCaseStage(c.Request().Context(), actorFrom(c), c.Param("id"), req.Stage, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caseRecord)
}

// ListAssignmentsHandler lists the professionals bound to a case
func ListAssignmentsHandler(c echo.Context) error {
	assignments, err := services.ListAssignments(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assignments)
}

// AssignUserHandler binds a professional to a case
func AssignUserHandler(c echo.Context) error {
	var req assignmentRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	assignment, err := newWorkflow().AssignUser(c.Request().Context(), actorFrom(c), c.Param("id"), req.UserID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, assignment)
}

// RemoveAssignmentHandler unbinds a professional from a case
func RemoveAssignmentHandler(c echo.Context) error {
	if err := newWorkflow().RemoveAssignment(c.Request().Context(), actorFrom(c), c.Param("id"), c.Param("assignmentId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListNotesHandler lists a case's notes
func ListNotesHandler(c echo.Context) error {
	notes, err := services.ListNotes(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

// CreateNoteHandler adds a note to a case
func CreateNoteHandler(c echo.Context) error {
	var req caseNoteRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	note, err := newWorkflow().CreateNote(c.Request().Context(), actorFrom(c), c.Param("id"), req.Content, req.Confidential)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

// UpdateNoteHandler edits a note
func UpdateNoteHandler(c echo.Context) error {
	var req caseNoteUpdateRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	note, err := newWorkflow().UpdateNote(c.Request().Context(), actorFrom(c), c.Param("id"), c.Param("noteId"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// DeleteNoteHandler removes a note
func DeleteNoteHandler(c echo.Context) error {
	if err := newWorkflow().DeleteNote(c.Request().Context(), actorFrom(c), c.Param("id"), c.Param("noteId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListHearingsHandler lists a case's hearings
func ListHearingsHandler(c echo.Context) error {
	hearings, err := services.ListHearings(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hearings)
}

// ScheduleHearingHandler books a hearing
func ScheduleHearingHandler(c echo.Context) error {
	var req hearingRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	hearing, err := newWorkflow().ScheduleHearing(c.Request().Context(), actorFrom(c), c.Param("id"), services.HearingInput{
		ScheduledAt: req.ScheduledAt,
		Room:        req.Room,
		Kind:        req.Kind,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, hearing)
}

// UpdateHearingStatusHandler marks a hearing held, postponed or cancelled
func UpdateHearingStatusHandler(c echo.Context) error {
	var req hearingStatusRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	hearing, err := newWorkflow().UpdateHearingStatus(c.Request().Context(), actorFrom(c), c.Param("id"), c.Param("hearingId"), req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hearing)
}

// ListWarrantsHandler lists a case's warrants
func ListWarrantsHandler(c echo.Context) error {
	warrants, err := services.ListWarrants(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, warrants)
}

// IssueWarrantHandler issues a warrant on a case
func IssueWarrantHandler(c echo.Context) error {
	var req warrantRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	warrant, err := newWorkflow().IssueWarrant(c.Request().Context(), actorFrom(c), c.Param("id"), services.WarrantInput{
		Kind:       req.Kind,
		TargetName: req.TargetName,
		Reason:     req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, warrant)
}

// ExecuteWarrantHandler records a warrant's execution
func ExecuteWarrantHandler(c echo.Context) error {
	warrant, err := newWorkflow().ExecuteWarrant(c.Request().Context(), actorFrom(c), c.Param("id"), c.Param("warrantId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, warrant)
}
