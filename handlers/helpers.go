package handlers

import (
	"strconv"

	"justice_flow_go/config"
	"justice_flow_go/db"
	"justice_flow_go/middleware"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

// PageResponse wraps a paginated listing
type PageResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg
	}
	return &config.Config{Environment: "development", EmailTestMode: true}
}

func newWorkflow() *services.Workflow {
	return services.NewWorkflow(db.DB, services.Audit, services.Notifications)
}

func actorFrom(c echo.Context) services.Actor {
	return middleware.RequestActor(c)
}

func queryInt(c echo.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return fallback
}

func paging(c echo.Context) (int, int) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(c, "page_size", 20)
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
