package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/report"
)

// ReportHandler serves the aggregate reports.
type ReportHandler struct {
	Engine *report.Engine
}

func NewReportHandler(engine *report.Engine) *ReportHandler {
	return &ReportHandler{Engine: engine}
}

// Revenue handles GET /complex-queries/cinema-revenue-report
// (?date_from=YYYY-MM-DD&date_to=YYYY-MM-DD&room_id=...).
func (h *ReportHandler) Revenue(c echo.Context) error {
	rep, err := h.Engine.Revenue(c.Request().Context(), report.RevenueParams{
		DateFrom: c.QueryParam("date_from"),
		DateTo:   c.QueryParam("date_to"),
		RoomID:   c.QueryParam("room_id"),
	})
	if err != nil {
		return respondError(c, err, "report not found")
	}
	return c.JSON(http.StatusOK, rep)
}

// DirectorPerformance handles GET /complex-queries/director-performance-analysis
// (?min_movies=1&year_from=...&year_to=...).
func (h *ReportHandler) DirectorPerformance(c echo.Context) error {
	var p report.DirectorParams
	minMovies, err := queryInt(c, "min_movies")
	if err != nil {
		return respondError(c, err, "")
	}
	if minMovies != nil {
		p.MinMovies = *minMovies
	}
	if p.YearFrom, err = queryInt(c, "year_from"); err != nil {
		return respondError(c, err, "")
	}
	if p.YearTo, err = queryInt(c, "year_to"); err != nil {
		return respondError(c, err, "")
	}
	rep, err := h.Engine.DirectorPerformance(c.Request().Context(), p)
	if err != nil {
		return respondError(c, err, "report not found")
	}
	return c.JSON(http.StatusOK, rep)
}
