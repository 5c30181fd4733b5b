package handlers

import (
	"net/http"
	"time"

	"justice_flow_go/db"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

// ListAuditLogsHandler returns filtered and paginated audit entries
func ListAuditLogsHandler(c echo.Context) error {
	page, size := paging(c)

	filters := services.AuditLogFilters{
		ActorID:      c.QueryParam("actor_id"),
		Organization: c.QueryParam("organization"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
		Status:       c.QueryParam("status"),
		SearchQuery:  c.QueryParam("search"),
	}
	if dateFrom := c.QueryParam("date_from"); dateFrom != "" {
		t, err := time.Parse("2006-01-02", dateFrom)
		if err != nil {
			return services.Validation("date_from must be YYYY-MM-DD")
		}
		filters.DateFrom = t
	}
	if dateTo := c.QueryParam("date_to"); dateTo != "" {
		t, err := time.Parse("2006-01-02", dateTo)
		if err != nil {
			return services.Validation("date_to must be YYYY-MM-DD")
		}
		filters.DateTo = t.Add(24*time.Hour - time.Second) // End of day
	}

	logs, total, err := services.ListAuditLogs(db.DB, filters, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PageResponse{Items: logs, Total: total, Page: page, PageSize: size})
}

// ResourceAuditHistoryHandler returns every audit entry for one resource
func ResourceAuditHistoryHandler(c echo.Context) error {
	logs, err := services.GetResourceAuditHistory(db.DB, c.Param("type"), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

// VerifyAuditChainHandler walks the hash chain and reports the first break
func VerifyAuditChainHandler(c echo.Context) error {
	report, err := services.VerifyAuditChain(c.Request().Context(), db.DB)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
