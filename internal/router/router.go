// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-management-api/internal/audit"
	"github.com/iliyamo/cinema-management-api/internal/config"
	"github.com/iliyamo/cinema-management-api/internal/handler"
	"github.com/iliyamo/cinema-management-api/internal/integrity"
	"github.com/iliyamo/cinema-management-api/internal/middleware"
	"github.com/iliyamo/cinema-management-api/internal/report"
	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

// Deps is everything the routes need.  Redis may be nil, which disables
// the report cache and the rate limiter.
type Deps struct {
	Cfg       config.Config
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Store     store.Store
	Manager   *integrity.Manager
	Sink      audit.Sink
	Redis     *redis.Client
}

// Setup installs the global middleware and registers every route.
func Setup(e *echo.Echo, d Deps) {
	e.Validator = middleware.NewValidator()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(middleware.Audit(d.Sink))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	repos := repository.NewRepositories(d.Store)

	RegisterRoutes(e, d.Store)
	RegisterAuth(e, handler.NewAuthHandler(d.Cfg))
	RegisterResources(e, handler.NewResources(repos, d.Manager), middleware.InvalidateCache(d.Cache, d.Redis))
	RegisterReports(e, handler.NewReportHandler(report.NewEngine(repos, e.Logger)), middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterLogs(e, handler.NewLogsHandler(audit.NewDiagnostics(d.Cfg.LogsDir)), d.Cfg.JWTSecret)
}

// RegisterRoutes registers the unauthenticated health checks.
func RegisterRoutes(e *echo.Echo, st store.Store) {
	e.GET("/health", handler.Health)
	e.GET("/healthz", handler.Ready(st))
}

// RegisterAuth registers the admin token endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/auth/token", a.Token)
}
