package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

const dateLayout = "2006-01-02"

// RevenueParams filters the revenue report.  Dates are YYYY-MM-DD; an
// empty value leaves that side of the range open.
type RevenueParams struct {
	DateFrom string
	DateTo   string
	RoomID   string
}

// SessionRevenue is one row of the revenue report.
type SessionRevenue struct {
	SessionID     string    `json:"_id"`
	SessionDate   time.Time `json:"session_date"`
	MovieTitle    string    `json:"movie_title,omitempty"`
	MovieGenre    string    `json:"movie_genre,omitempty"`
	Directors     []string  `json:"directors"`
	RoomName      string    `json:"room_name,omitempty"`
	RoomCapacity  *int      `json:"room_capacity,omitempty"`
	TotalTickets  int       `json:"total_tickets"`
	TicketsSold   int       `json:"tickets_sold"`
	TotalRevenue  float64   `json:"total_revenue"`
	OccupancyRate float64   `json:"occupancy_rate"`
}

type RevenueSummary struct {
	TotalSessions        int     `json:"total_sessions"`
	TotalRevenue         float64 `json:"total_revenue"`
	TotalTicketsSold     int     `json:"total_tickets_sold"`
	AverageOccupancyRate float64 `json:"average_occupancy_rate"`
}

type RevenueReport struct {
	Summary  RevenueSummary   `json:"summary"`
	Sessions []SessionRevenue `json:"sessions"`
}

// sessionMatch turns the parameters into the session filter.  The range
// covers date_from 00:00:00 through date_to 23:59:59.
func sessionMatch(p RevenueParams) (store.Filter, error) {
	var f store.Filter
	if p.DateFrom != "" {
		from, err := time.Parse(dateLayout, p.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: date_from %q is not YYYY-MM-DD", repository.ErrInvalidInput, p.DateFrom)
		}
		f = f.And(store.Gte("date_time", from))
	}
	if p.DateTo != "" {
		to, err := time.Parse(dateLayout, p.DateTo)
		if err != nil {
			return nil, fmt.Errorf("%w: date_to %q is not YYYY-MM-DD", repository.ErrInvalidInput, p.DateTo)
		}
		f = f.And(store.Lte("date_time", to.Add(24*time.Hour-time.Second)))
	}
	if p.RoomID != "" {
		if !store.ValidID(p.RoomID) {
			return nil, fmt.Errorf("%w: invalid room id %q", repository.ErrInvalidInput, p.RoomID)
		}
		f = f.And(store.Eq("room_id", p.RoomID))
	}
	return f, nil
}

// Revenue builds the per-session revenue and occupancy report.
func (e *Engine) Revenue(ctx context.Context, p RevenueParams) (*RevenueReport, error) {
	e.log.Infof("report: revenue date_from=%q date_to=%q room_id=%q", p.DateFrom, p.DateTo, p.RoomID)

	match, err := sessionMatch(p)
	if err != nil {
		e.log.Warnf("report: rejected revenue filters: %v", err)
		return nil, err
	}
	sessions, err := e.repos.Sessions.List(ctx, match, 0, 0)
	if err != nil {
		return nil, err
	}

	// lookups
	movies, err := fetchByIDs(ctx, e.repos.Movies, distinct(sessions, func(s model.Session) []string { return []string{s.MovieID} }))
	if err != nil {
		return nil, err
	}
	directors, err := fetchByIDs(ctx, e.repos.Directors, distinct(movies, func(m model.Movie) []string { return m.DirectorIDs }))
	if err != nil {
		return nil, err
	}
	rooms, err := fetchByIDs(ctx, e.repos.Rooms, distinct(sessions, func(s model.Session) []string { return []string{s.RoomID} }))
	if err != nil {
		return nil, err
	}
	tickets, err := fetchIn(ctx, e.repos.Tickets, "session_id", distinct(sessions, func(s model.Session) []string { return []string{s.ID.Hex()} }))
	if err != nil {
		return nil, err
	}
	movieByID := index(movies, func(m model.Movie) string { return m.ID.Hex() })
	directorByID := index(directors, func(d model.Director) string { return d.ID.Hex() })
	roomByID := index(rooms, func(r model.Room) string { return r.ID.Hex() })
	ticketsBySession := group(tickets, func(t model.Ticket) string { return t.SessionID })

	// project
	rows := make([]SessionRevenue, 0, len(sessions))
	for _, s := range sessions {
		row := SessionRevenue{
			SessionID:   s.ID.Hex(),
			SessionDate: s.DateTime,
			Directors:   []string{},
		}
		if m, ok := movieByID[s.MovieID]; ok {
			row.MovieTitle = m.Title
			row.MovieGenre = m.Genre
			for _, id := range m.DirectorIDs {
				if d, ok := directorByID[id]; ok {
					row.Directors = append(row.Directors, d.Name)
				}
			}
		}
		ts := ticketsBySession[row.SessionID]
		row.TotalTickets = len(ts)
		row.TicketsSold, row.TotalRevenue = paid(ts)
		row.TotalRevenue = round2(row.TotalRevenue)
		if r, ok := roomByID[s.RoomID]; ok {
			capacity := r.Capacity
			row.RoomName = r.Name
			row.RoomCapacity = &capacity
			row.OccupancyRate = occupancy(row.TicketsSold, capacity)
		}
		rows = append(rows, row)
	}

	// sort newest first
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SessionDate.After(rows[j].SessionDate) })

	rep := &RevenueReport{Sessions: rows}
	var occSum float64
	for _, r := range rows {
		rep.Summary.TotalRevenue += r.TotalRevenue
		rep.Summary.TotalTicketsSold += r.TicketsSold
		occSum += r.OccupancyRate
	}
	rep.Summary.TotalSessions = len(rows)
	rep.Summary.TotalRevenue = round2(rep.Summary.TotalRevenue)
	if len(rows) > 0 {
		rep.Summary.AverageOccupancyRate = round2(occSum / float64(len(rows)))
	}
	return rep, nil
}
