package handlers

import (
	"fmt"
	"net/http"
	"time"

	"justice_flow_go/db"
	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

type incarcerationRequest struct {
	DetaineeID  string    `json:"detainee_id" validate:"required,uuid"`
	PrisonID    string    `json:"prison_id" validate:"required,uuid"`
	CaseID      string    `json:"case_id" validate:"omitempty,uuid"`
	Status      string    `json:"status" validate:"omitempty,oneof=preventive convicted"`
	EntryDate   time.Time `json:"entry_date"`
	Observation string    `json:"observation" validate:"max=2000"`
}

type incarcerationEndRequest struct {
	At   time.Time `json:"at"`
	Note string    `json:"note" validate:"max=2000"`
}

// ListIncarcerationsHandler lists custody records, scoped to the officer's prison
func ListIncarcerationsHandler(c echo.Context) error {
	incarcerations, err := services.ListIncarcerations(db.DB, actorFrom(c), services.IncarcerationFilter{
		PrisonID: c.QueryParam("prison_id"),
		CaseID:   c.QueryParam("case_id"),
		Status:   c.QueryParam("status"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, incarcerations)
}

// CreateIncarcerationHandler registers a prison entry
func CreateIncarcerationHandler(c echo.Context) error {
	var req incarcerationRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	entry := req.EntryDate
	if entry.IsZero() {
		entry = time.Now()
	}
	incarceration, err := newWorkflow().CreateIncarceration(c.Request().Context(), actorFrom(c), services.IncarcerationInput{
		DetaineeID:  req.DetaineeID,
		PrisonID:    req.PrisonID,
		CaseID:      req.CaseID,
		Status:      req.Status,
		EntryDate:   entry,
		Observation: req.Observation,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, incarceration)
}

// ReleaseIncarcerationHandler releases a detainee
func ReleaseIncarcerationHandler(c echo.Context) error {
	return endIncarceration(c, models.IncarcerationStatusReleased)
}

// RecordEscapeHandler marks a detainee as escaped
func RecordEscapeHandler(c echo.Context) error {
	return endIncarceration(c, models.IncarcerationStatusEscaped)
}

func endIncarceration(c echo.Context, status string) error {
	var req incarcerationEndRequest
	if c.Request().ContentLength != 0 {
		if err := bindStrict(c, &req); err != nil {
			return err
		}
	}
	w := newWorkflow()
	ctx := c.Request().Context()
	id := c.Param("incarcerationId")

	var (
		incarceration *models.Incarceration
		err           error
	)
	if status == models.IncarcerationStatusEscaped {
		incarceration, err = w.RecordEscape(ctx, actorFrom(c), id, req.At, req.Note)
	} else {
		incarceration, err = w.ReleaseIncarceration(ctx, actorFrom(c), id, req.At, req.Note)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, incarceration)
}

// OccupancyHandler returns per-prison occupancy figures
func OccupancyHandler(c echo.Context) error {
	if err := services.Authorize(actorFrom(c), models.RolePrisonOfficer, models.RoleProsecutor, models.RoleJudge, models.RoleAdmin); err != nil {
		return err
	}
	rows, err := services.PrisonOccupancy(db.DB)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// OccupancyReportHandler downloads the occupancy report as a spreadsheet
func OccupancyReportHandler(c echo.Context) error {
	if err := services.Authorize(actorFrom(c), models.RoleProsecutor, models.RoleJudge, models.RoleAdmin); err != nil {
		return err
	}
	rows, err := services.PrisonOccupancy(db.DB)
	if err != nil {
		return err
	}
	now := time.Now()
	workbook, err := services.BuildOccupancyWorkbook(rows, now)
	if err != nil {
		return services.Internal("failed to build occupancy report", err)
	}
	filename := fmt.Sprintf("occupancy-%s.xlsx", now.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, services.XLSXContentType, workbook)
}
