package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/cinema-management-api/internal/integrity"
	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/repository"
)

// Resource serves the CRUD endpoints of one entity.  Reads go to the
// repository; every write goes through the integrity manager.
type Resource[T any] struct {
	label   string
	repo    *repository.Repo[T]
	mgr     *integrity.Manager
	filters []filterField
	fields  map[string]string // json name -> Go field name
}

func newResource[T any](label string, repo *repository.Repo[T], mgr *integrity.Manager, filters []filterField) *Resource[T] {
	var zero T
	return &Resource[T]{
		label:   label,
		repo:    repo,
		mgr:     mgr,
		filters: filters,
		fields:  jsonFields(reflect.TypeOf(zero)),
	}
}

// Resources holds one handler per entity.
type Resources struct {
	Directors *Resource[model.Director]
	Movies    *Resource[model.Movie]
	Rooms     *Resource[model.Room]
	Sessions  *Resource[model.Session]
	Tickets   *Resource[model.Ticket]
	Payments  *Resource[model.PaymentDetail]
}

func NewResources(repos repository.Repositories, mgr *integrity.Manager) Resources {
	return Resources{
		Directors: newResource("Director", repos.Directors, mgr, directorFilters),
		Movies:    newResource("Movie", repos.Movies, mgr, movieFilters),
		Rooms:     newResource("Room", repos.Rooms, mgr, roomFilters),
		Sessions:  newResource("Session", repos.Sessions, mgr, sessionFilters),
		Tickets:   newResource("Ticket", repos.Tickets, mgr, ticketFilters),
		Payments:  newResource("Payment", repos.Payments, mgr, paymentFilters),
	}
}

// Register mounts the endpoints on g.  Static paths are registered before
// /:id so /count and /filter are not read as identifiers.
func (h *Resource[T]) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/count", h.Count)
	g.GET("/filter", h.Filter)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Resource[T]) notFound() string { return h.label + " not found" }

// Create validates the body, inserts it with its back-references and
// returns the stored document with 201.
func (h *Resource[T]) Create(c echo.Context) error {
	var v T
	if err := c.Bind(&v); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&v); err != nil {
		return respondError(c, err, h.notFound())
	}
	ctx := c.Request().Context()
	id, err := h.mgr.Create(ctx, h.repo.Collection(), v)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	out, err := h.repo.Get(ctx, id)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Resource[T]) List(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	items, err := h.repo.List(c.Request().Context(), nil, skip, limit)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusOK, items)
}

// Count returns {"total_<collection>": n}.
func (h *Resource[T]) Count(c echo.Context) error {
	n, err := h.repo.Count(c.Request().Context(), nil)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusOK, echo.Map{"total_" + h.repo.Collection(): n})
}

// Filter lists the documents matching the entity's query predicates.
func (h *Resource[T]) Filter(c echo.Context) error {
	f, err := buildFilter(c, h.filters)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	skip, limit, err := paging(c)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	items, err := h.repo.List(c.Request().Context(), f, skip, limit)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Resource[T]) Get(c echo.Context) error {
	out, err := h.repo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusOK, out)
}

type partialValidator interface {
	ValidatePartial(i interface{}, fields ...string) error
}

// Update sets the fields present in the body.  A present field that
// decodes to nothing (null on an optional reference) is cleared.
func (h *Resource[T]) Update(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return invalidBody(c)
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		return invalidBody(c)
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return invalidBody(c)
	}

	var goFields []string
	for k := range present {
		if name, ok := h.fields[k]; ok && k != "_id" {
			goFields = append(goFields, name)
		}
	}
	if pv, ok := c.Echo().Validator.(partialValidator); ok && len(goFields) > 0 {
		if err := pv.ValidatePartial(&v, goFields...); err != nil {
			return respondError(c, err, h.notFound())
		}
	}

	doc, err := toBSONDoc(v)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	set := bson.M{}
	for k := range present {
		if _, ok := h.fields[k]; !ok || k == "_id" {
			continue
		}
		set[k] = doc[k]
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.mgr.Update(ctx, h.repo.Collection(), id, set); err != nil {
		return respondError(c, err, h.notFound())
	}
	out, err := h.repo.Get(ctx, id)
	if err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes the document and runs its cascade rules.
func (h *Resource[T]) Delete(c echo.Context) error {
	if err := h.mgr.Delete(c.Request().Context(), h.repo.Collection(), c.Param("id")); err != nil {
		return respondError(c, err, h.notFound())
	}
	return c.JSON(http.StatusOK, echo.Map{"detail": h.label + " deleted successfully"})
}

func toBSONDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// jsonFields maps the json names of a struct's fields to the Go names.
func jsonFields(t reflect.Type) map[string]string {
	out := map[string]string{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out[name] = sf.Name
	}
	return out
}
