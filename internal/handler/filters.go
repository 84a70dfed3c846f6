package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

type fieldKind int

const (
	text     fieldKind = iota // case-insensitive substring
	integer                   // exact, plus <param>_min / <param>_max
	number                    // like integer, for floats
	boolean                   // exact
	identity                  // exact, must be an identifier
	date                      // <param>_from / <param>_to as YYYY-MM-DD
)

// filterField maps a query parameter onto a document field.
type filterField struct {
	param string
	field string
	kind  fieldKind
}

func plain(param string, kind fieldKind) filterField { return filterField{param: param, field: param, kind: kind} }

var (
	directorFilters = []filterField{
		plain("director_name", text),
		plain("nationality", text),
		{param: "movie_id", field: "movie_ids", kind: identity},
	}
	movieFilters = []filterField{
		plain("movie_title", text),
		plain("genre", text),
		plain("rating", text),
		plain("duration", integer),
		plain("release_year", integer),
		{param: "director_id", field: "director_ids", kind: identity},
		{param: "session_id", field: "session_ids", kind: identity},
	}
	roomFilters = []filterField{
		plain("room_name", text),
		plain("screen_type", text),
		plain("audio_system", text),
		plain("capacity", integer),
		plain("acessibility", boolean),
		{param: "session_id", field: "session_ids", kind: identity},
	}
	sessionFilters = []filterField{
		plain("exibition_type", text),
		plain("language_audio", text),
		plain("language_subtitles", text),
		plain("status_session", text),
		plain("date_time", date),
		plain("movie_id", identity),
		plain("room_id", identity),
		{param: "ticket_id", field: "ticket_ids", kind: identity},
	}
	ticketFilters = []filterField{
		plain("chair_number", integer),
		plain("ticket_type", text),
		plain("payment_status", text),
		plain("ticket_price", number),
		plain("purchase_date", date),
		plain("session_id", identity),
		plain("payment_details_id", identity),
	}
	paymentFilters = []filterField{
		plain("transaction_id", text),
		plain("payment_method", text),
		plain("status", text),
		plain("final_price", number),
		plain("payment_date", date),
		plain("ticket_id", identity),
	}
)

// buildFilter reads the query parameters named by fields.  Malformed
// numbers, dates and identifiers yield repository.ErrInvalidInput.
func buildFilter(c echo.Context, fields []filterField) (store.Filter, error) {
	var out store.Filter
	for _, ff := range fields {
		switch ff.kind {
		case text:
			if v := c.QueryParam(ff.param); v != "" {
				out = out.And(store.Contains(ff.field, v))
			}
		case integer, number:
			// An exact value wins over a range.
		suffixes:
			for _, suffix := range []string{"", "_min", "_max"} {
				raw := c.QueryParam(ff.param + suffix)
				if raw == "" {
					continue
				}
				v, err := parseNumber(raw, ff.kind)
				if err != nil {
					return nil, fmt.Errorf("%w: %s%s must be a number", repository.ErrInvalidInput, ff.param, suffix)
				}
				switch suffix {
				case "":
					out = out.And(store.Eq(ff.field, v))
					break suffixes
				case "_min":
					out = out.And(store.Gte(ff.field, v))
				case "_max":
					out = out.And(store.Lte(ff.field, v))
				}
			}
		case boolean:
			if raw := c.QueryParam(ff.param); raw != "" {
				b, err := strconv.ParseBool(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %s must be true or false", repository.ErrInvalidInput, ff.param)
				}
				out = out.And(store.Eq(ff.field, b))
			}
		case identity:
			if v := c.QueryParam(ff.param); v != "" {
				if !store.ValidID(v) {
					return nil, fmt.Errorf("%w: invalid %s %q", repository.ErrInvalidInput, ff.param, v)
				}
				out = out.And(store.Eq(ff.field, v))
			}
		case date:
			if raw := c.QueryParam(ff.param + "_from"); raw != "" {
				d, err := time.Parse("2006-01-02", raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %s_from %q is not YYYY-MM-DD", repository.ErrInvalidInput, ff.param, raw)
				}
				out = out.And(store.Gte(ff.field, d))
			}
			if raw := c.QueryParam(ff.param + "_to"); raw != "" {
				d, err := time.Parse("2006-01-02", raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %s_to %q is not YYYY-MM-DD", repository.ErrInvalidInput, ff.param, raw)
				}
				out = out.And(store.Lte(ff.field, d.Add(24*time.Hour-time.Second)))
			}
		}
	}
	return out, nil
}

func parseNumber(raw string, kind fieldKind) (any, error) {
	if kind == integer {
		return strconv.ParseInt(raw, 10, 64)
	}
	return strconv.ParseFloat(raw, 64)
}
