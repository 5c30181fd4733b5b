package handlers

import (
	"context"
	"net/http"
	"time"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type fileComplaintRequest struct {
	CitizenID          string `json:"citizen_id" validate:"omitempty,uuid"`
	PoliceStationID    string `json:"police_station_id" validate:"omitempty,uuid"`
	Description        string `json:"description" validate:"required,max=10000"`
	ProvisionalOffence string `json:"provisional_offence" validate:"max=255"`
	Location           string `json:"location" validate:"max=500"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

type noteRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type statusOverrideRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"required,max=2000"`
}

type prosecuteRequest struct {
	CourtID  string `json:"court_id" validate:"required,uuid"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

type assignJudgeRequest struct {
	JudgeID string `json:"judge_id" validate:"required,uuid"`
}

type detaineeRequest struct {
	NIU         string     `json:"niu" validate:"max=64"`
	UserID      string     `json:"user_id" validate:"omitempty,uuid"`
	FirstName   string     `json:"first_name" validate:"required,max=120"`
	LastName    string     `json:"last_name" validate:"required,max=120"`
	BirthDate   *time.Time `json:"birth_date"`
	Gender      string     `json:"gender" validate:"max=16"`
	Nationality string     `json:"nationality" validate:"max=64"`
}

type flagrantDelictRequest struct {
	PrisonID string          `json:"prison_id" validate:"required,uuid"`
	CourtID  string          `json:"court_id" validate:"required,uuid"`
	Detainee detaineeRequest `json:"detainee" validate:"required"`
}

// FileComplaintHandler registers a complaint and sends its receipt in the background
func FileComplaintHandler(c echo.Context) error {
	var req fileComplaintRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	complaint, err := newWorkflow().FileComplaint(c.Request().Context(), actorFrom(c), services.FileComplaintInput{
		CitizenID:          req.CitizenID,
		PoliceStationID:    req.PoliceStationID,
		Description:        req.Description,
		ProvisionalOffence: req.ProvisionalOffence,
		Location:           req.Location,
	})
	if err != nil {
		return err
	}

	cfg := getConfig(c)
	if cfg.Environment == "test" {
		return c.JSON(http.StatusCreated, complaint)
	}
	go func(id string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := services.DeliverComplaintReceipt(ctx, db.DB, cfg, services.Storage, id); err != nil {
			log.WithField("complaint_id", id).Errorf("[RECEIPT] Delivery failed: %v", err)
		}
	}(complaint.ID)

	return c.JSON(http.StatusCreated, complaint)
}

// ListComplaintsHandler lists the complaints visible to the caller
func ListComplaintsHandler(c echo.Context) error {
	page, size := paging(c)
	complaints, total, err := services.ListComplaints(db.DB, actorFrom(c), services.ListComplaintsFilter{
		Status:   c.QueryParam("status"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PageResponse{Items: complaints, Total: total, Page: page, PageSize: size})
}

// GetComplaintHandler returns one complaint with its allowed next statuses
func GetComplaintHandler(c echo.Context) error {
	actor := actorFrom(c)
	complaint, err := services.GetComplaint(db.DB, actor, c.Param("id"))
	if err != nil {
		return err
	}
	history, err := services.StatusHistoryFor(db.DB, "Complaint", complaint.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"complaint":   complaint,
		"history":     history,
		"transitions": services.AllowedComplaintTransitions(complaint.Status, actor.Role),
	})
}

// TransitionComplaintHandler moves a complaint along the status machine
func TransitionComplaintHandler(c echo.Context) error {
	var req transitionRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	complaint, err := newWorkflow().TransitionComplaint(c.Request().Context(), actorFrom(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, complaint)
}

// TransmitComplaintHandler forwards a complaint to the prosecutor
func TransmitComplaintHandler(c echo.Context) error {
	var req noteRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	complaint, err := newWorkflow().TransmitComplaint(c.Request().Context(), actorFrom(c), c.Param("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, complaint)
}

// OverrideComplaintStatusHandler is the admin correction path outside the status machine
func OverrideComplaintStatusHandler(c echo.Context) error {
	var req statusOverrideRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	complaint, err := newWorkflow().UpdateStatus(c.Request().Context(), actorFrom(c), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, complaint)
}

// ProsecuteComplaintHandler opens a case from a complaint
func ProsecuteComplaintHandler(c echo.Context) error {
	var req prosecuteRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	caseRecord, err := newWorkflow().ProsecuteComplaint(c.Request().Context(), actorFrom(c), c.Param("id"), services.ProsecuteInput{
		CourtID:  req.CourtID,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, caseRecord)
}

// AssignJudgeHandler sends a complaint to an instruction judge
func AssignJudgeHandler(c echo.Context) error {
	var req assignJudgeRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	caseRecord, err := newWorkflow().AssignToJudge(c.Request().Context(), actorFrom(c), c.Param("id"), req.JudgeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caseRecord)
}

// CloseComplaintHandler closes a complaint without further action
func CloseComplaintHandler(c echo.Context) error {
	var req noteRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	complaint, err := newWorkflow().CloseComplaint(c.Request().Context(), actorFrom(c), c.Param("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, complaint)
}

// FlagrantDelictHandler prosecutes and incarcerates in one step
func FlagrantDelictHandler(c echo.Context) error {
	var req flagrantDelictRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	result, err := newWorkflow().FlagrantDelictIncarceration(c.Request().Context(), actorFrom(c), c.Param("id"), services.FlagrantDelictInput{
		PrisonID: req.PrisonID,
		CourtID:  req.CourtID,
		Detainee: services.DetaineeInput{
			NIU:         req.Detainee.NIU,
			UserID:      req.Detainee.UserID,
			FirstName:   req.Detainee.FirstName,
			LastName:    req.Detainee.LastName,
			BirthDate:   req.Detainee.BirthDate,
			Gender:      req.Detainee.Gender,
			Nationality: req.Detainee.Nationality,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// ComplaintReceiptHandler streams the PDF receipt of a complaint
func ComplaintReceiptHandler(c echo.Context) error {
	complaint, pdf, err := services.ComplaintReceiptPDF(c.Request().Context(), db.DB, getConfig(c), actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="receipt-`+complaint.TrackingCode+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// VerifyComplaintHandler is the public landing of the receipt's verification link
func VerifyComplaintHandler(c echo.Context) error {
	verification, err := services.VerifyComplaint(db.DB, c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verification)
}
