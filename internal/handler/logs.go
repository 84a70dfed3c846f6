package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/audit"
)

// LogsHandler exposes the audit log diagnostics under /logs.
type LogsHandler struct {
	Diag *audit.Diagnostics
}

func NewLogsHandler(d *audit.Diagnostics) *LogsHandler {
	return &LogsHandler{Diag: d}
}

func (h *LogsHandler) Files(c echo.Context) error {
	res, err := h.Diag.Files()
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, res)
}

// Recent handles GET /logs/recent?lines=100&log_type=error&level=INFO.
func (h *LogsHandler) Recent(c echo.Context) error {
	q := audit.RecentQuery{Lines: 100, LogType: c.QueryParam("log_type"), Level: strings.ToUpper(c.QueryParam("level"))}
	lines, err := queryInt(c, "lines")
	if err != nil {
		return respondError(c, err, "")
	}
	if lines != nil {
		q.Lines = *lines
	}
	res, err := h.Diag.Recent(q)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LogsHandler) Stats(c echo.Context) error {
	res, err := h.Diag.Stats()
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, res)
}

// Clean handles DELETE /logs/clean?days_older_than=7.
func (h *LogsHandler) Clean(c echo.Context) error {
	days := 7
	n, err := queryInt(c, "days_older_than")
	if err != nil {
		return respondError(c, err, "")
	}
	if n != nil {
		days = *n
	}
	res, err := h.Diag.Clean(days)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LogsHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Diag.Health())
}
