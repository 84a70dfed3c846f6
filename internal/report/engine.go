// Package report computes the read-only business reports.  Each report is
// a fixed sequence of typed stages (match, lookup, project, group) over
// batch reads from the store, so it runs the same on every backend.
package report

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/repository"
)

// Engine runs reports against the entity repositories.
type Engine struct {
	repos repository.Repositories
	log   echo.Logger
}

func NewEngine(repos repository.Repositories, logger echo.Logger) *Engine {
	return &Engine{repos: repos, log: logger}
}
