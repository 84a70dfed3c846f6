package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/handler"
	"github.com/iliyamo/cinema-management-api/internal/middleware"
)

// RegisterResources mounts the CRUD endpoints of every entity.  Writes pass
// through invalidate so cached reports are dropped.
func RegisterResources(e *echo.Echo, r handler.Resources, invalidate echo.MiddlewareFunc) {
	r.Directors.Register(e.Group("/directors", invalidate))
	r.Movies.Register(e.Group("/movies", invalidate))
	r.Rooms.Register(e.Group("/rooms", invalidate))
	r.Sessions.Register(e.Group("/sessions", invalidate))
	r.Tickets.Register(e.Group("/tickets", invalidate))
	r.Payments.Register(e.Group("/payments", invalidate))
}

// RegisterReports mounts the reports under /complex-queries and the
// /reports aliases, both behind the response cache.
func RegisterReports(e *echo.Echo, h *handler.ReportHandler, cache echo.MiddlewareFunc) {
	cq := e.Group("/complex-queries", cache)
	cq.GET("/cinema-revenue-report", h.Revenue)
	cq.GET("/director-performance-analysis", h.DirectorPerformance)

	rp := e.Group("/reports", cache)
	rp.GET("/revenue", h.Revenue)
	rp.GET("/director-performance", h.DirectorPerformance)
}

// RegisterLogs mounts the log diagnostics.  All routes require an ADMIN
// access token.
func RegisterLogs(e *echo.Echo, h *handler.LogsHandler, jwtSecret string) {
	g := e.Group("/logs",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(handler.AdminRole),
	)
	g.GET("/files", h.Files)
	g.GET("/recent", h.Recent)
	g.GET("/stats", h.Stats)
	g.DELETE("/clean", h.Clean)
	g.GET("/health", h.Health)
}
