// Package handler contains the HTTP handlers.  Handlers translate request
// input into repository, integrity and report calls and map the error
// taxonomy of package repository onto HTTP statuses.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/repository"
)

const (
	defaultSkip  = 0
	defaultLimit = 10
)

// respondError writes {"error": msg} with the status matching err.  notFound
// is the message used for repository.ErrNotFound.
func respondError(c echo.Context, err error, notFound string) error {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(verrs)})
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidReference),
		errors.Is(err, repository.ErrReferenceNotFound):
		c.Logger().Warnf("business rule violation: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrAssociationFailed):
		c.Logger().Errorf("association failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("unhandled error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func validationMessage(verrs validator.ValidationErrors) string {
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", repository.ErrInvalidInput, name)
	}
	return &n, nil
}

// paging reads skip (>= 0, default 0) and limit (>= 1, default 10).
func paging(c echo.Context) (skip, limit int64, err error) {
	s, err := queryInt(c, "skip")
	if err != nil {
		return 0, 0, err
	}
	l, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	skip, limit = defaultSkip, defaultLimit
	if s != nil {
		if *s < 0 {
			return 0, 0, fmt.Errorf("%w: skip must be >= 0", repository.ErrInvalidInput)
		}
		skip = int64(*s)
	}
	if l != nil {
		if *l < 1 {
			return 0, 0, fmt.Errorf("%w: limit must be >= 1", repository.ErrInvalidInput)
		}
		limit = int64(*l)
	}
	return skip, limit, nil
}
