package handlers

import (
	"net/http"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

type decisionRequest struct {
	CourtID string `json:"court_id" validate:"omitempty,uuid"`
	Kind    string `json:"kind" validate:"required,max=64"`
	Verdict string `json:"verdict" validate:"required"`
}

type decisionUpdateRequest struct {
	Kind    *string `json:"kind" validate:"omitempty,max=64"`
	Verdict *string `json:"verdict"`
}

type significationRequest struct {
	PartyName string `json:"party_name" validate:"required,max=200"`
	Method    string `json:"method" validate:"required,max=64"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type sentenceRequest struct {
	DetaineeID      string  `json:"detainee_id" validate:"required,uuid"`
	FirmYears       int     `json:"firm_years" validate:"gte=0"`
	FirmMonths      int     `json:"firm_months" validate:"gte=0"`
	FirmDays        int     `json:"firm_days" validate:"gte=0"`
	SuspendedYears  int     `json:"suspended_years" validate:"gte=0"`
	SuspendedMonths int     `json:"suspended_months" validate:"gte=0"`
	SuspendedDays   int     `json:"suspended_days" validate:"gte=0"`
	FineAmount      float64 `json:"fine_amount" validate:"gte=0"`
	DamagesAmount   float64 `json:"damages_amount" validate:"gte=0"`
}

// ListDecisionsHandler lists the rulings on a case
func ListDecisionsHandler(c echo.Context) error {
	decisions, err := services.ListCaseDecisions(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisions)
}

// CreateDecisionHandler drafts a ruling on a case
func CreateDecisionHandler(c echo.Context) error {
	var req decisionRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	decision, err := newWorkflow().CreateDecision(c.Request().Context(), actorFrom(c), services.DecisionInput{
		CaseID:  c.Param("id"),
		CourtID: req.CourtID,
		Kind:    req.Kind,
		Verdict: req.Verdict,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, decision)
}

// GetDecisionHandler returns one ruling
func GetDecisionHandler(c echo.Context) error {
	decision, err := services.GetDecision(db.DB, actorFrom(c), c.Param("decisionId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision)
}

// UpdateDecisionHandler edits a draft ruling
func UpdateDecisionHandler(c echo.Context) error {
	var req decisionUpdateRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	decision, err := newWorkflow().UpdateDecision(c.Request().Context(), actorFrom(c), c.Param("decisionId"), services.DecisionUpdate{
		Kind:    req.Kind,
		Verdict: req.Verdict,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision)
}

// SignDecisionHandler signs a draft ruling, after which it can no longer change
func SignDecisionHandler(c echo.Context) error {
	decision, err := newWorkflow().SignDecision(c.Request().Context(), actorFrom(c), c.Param("decisionId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision)
}

// SignifyDecisionHandler records service of a signed ruling on a party
func SignifyDecisionHandler(c echo.Context) error {
	var req significationRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	signification, err := newWorkflow().SignifyDecision(c.Request().Context(), actorFrom(c), c.Param("decisionId"), services.SignificationInput{
		PartyName: req.PartyName,
		Method:    req.Method,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, signification)
}

// ListSentencesHandler lists the sentences pronounced on a case
func ListSentencesHandler(c echo.Context) error {
	sentences, err := services.ListCaseSentences(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sentences)
}

// CreateSentenceHandler attaches a sentence to a signed ruling
func CreateSentenceHandler(c echo.Context) error {
	var req sentenceRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	sentence, err := newWorkflow().CreateSentence(c.Request().Context(), actorFrom(c), services.SentenceInput{
		DecisionID:      c.Param("decisionId"),
		DetaineeID:      req.DetaineeID,
		FirmYears:       req.FirmYears,
		FirmMonths:      req.FirmMonths,
		FirmDays:        req.FirmDays,
		SuspendedYears:  req.SuspendedYears,
		SuspendedMonths: req.SuspendedMonths,
		SuspendedDays:   req.SuspendedDays,
		FineAmount:      req.FineAmount,
		DamagesAmount:   req.DamagesAmount,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sentence)
}

// ExecuteSentenceHandler turns a sentence into a convicted incarceration
func ExecuteSentenceHandler(c echo.Context) error {
	incarceration, err := newWorkflow().ExecuteSentence(c.Request().Context(), actorFrom(c), c.Param("sentenceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, incarceration)
}
