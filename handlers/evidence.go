package handlers

import (
	"net/http"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

type custodyRequest struct {
	Action   string `json:"action" validate:"required"`
	ToUserID string `json:"to_user_id" validate:"omitempty,uuid"`
	Note     string `json:"note" validate:"max=2000"`
}

// ListEvidenceHandler lists a case's exhibits
func ListEvidenceHandler(c echo.Context) error {
	evidence, err := services.ListCaseEvidence(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, evidence)
}

// RegisterEvidenceHandler records an exhibit from a multipart form with an optional file
func RegisterEvidenceHandler(c echo.Context) error {
	input := services.EvidenceInput{
		CaseID:      c.Param("id"),
		Label:       c.FormValue("label"),
		Description: c.FormValue("description"),
		Kind:        c.FormValue("kind"),
		Note:        c.FormValue("note"),
	}

	var file *services.EvidenceFile
	if header, err := c.FormFile("file"); err == nil {
		if header.Size > services.MaxEvidenceSize {
			return services.Validation("evidence file exceeds the %d MB limit", services.MaxEvidenceSize/(1024*1024))
		}
		src, err := header.Open()
		if err != nil {
			return services.Validation("could not read uploaded file")
		}
		defer src.Close()
		file = &services.EvidenceFile{
			Reader:      src,
			FileName:    header.Filename,
			ContentType: header.Header.Get(echo.HeaderContentType),
			Size:        header.Size,
		}
	} else if err != http.ErrMissingFile {
		return services.Validation("invalid multipart form")
	}

	evidence, err := newWorkflow().RegisterEvidence(c.Request().Context(), actorFrom(c), services.Storage, input, file)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, evidence)
}

// TransferCustodyHandler hands an exhibit over or changes its state
func TransferCustodyHandler(c echo.Context) error {
	var req custodyRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	entry, err := newWorkflow().TransferCustody(c.Request().Context(), actorFrom(c), c.Param("evidenceId"), services.CustodyInput{
		Action:   req.Action,
		ToUserID: req.ToUserID,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// CustodyTrailHandler returns an exhibit's custody chain and whether it is intact
func CustodyTrailHandler(c echo.Context) error {
	trail, err := services.GetCustodyTrail(db.DB, actorFrom(c), c.Param("evidenceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trail)
}

// DownloadEvidenceHandler streams an exhibit's stored file
func DownloadEvidenceHandler(c echo.Context) error {
	reader, evidence, err := services.OpenEvidenceFile(c.Request().Context(), db.DB, actorFrom(c), services.Storage, c.Param("evidenceId"))
	if err != nil {
		return err
	}
	defer reader.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+evidence.FileName+`"`)
	c.Response().Header().Set("X-Content-SHA256", evidence.ContentHash)
	return c.Stream(http.StatusOK, evidence.MimeType, reader)
}
