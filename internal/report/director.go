package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

// DirectorParams filters the director performance report.  MinMovies
// below 1 is treated as 1.
type DirectorParams struct {
	MinMovies int
	YearFrom  *int
	YearTo    *int
}

// MoviePerformance is one movie inside a director row.  Occupancy is null
// for a movie without sessions.
type MoviePerformance struct {
	Title       string   `json:"title"`
	Genre       string   `json:"genre"`
	ReleaseYear *int     `json:"release_year"`
	Sessions    int      `json:"sessions"`
	TicketsSold int      `json:"tickets_sold"`
	Revenue     float64  `json:"revenue"`
	Occupancy   *float64 `json:"occupancy"`
}

type DirectorPerformance struct {
	DirectorID       string             `json:"director_id"`
	DirectorName     string             `json:"director_name"`
	Nationality      string             `json:"nationality"`
	BirthDate        string             `json:"birth_date"`
	TotalMovies      int                `json:"total_movies"`
	TotalSessions    int                `json:"total_sessions"`
	TotalTicketsSold int                `json:"total_tickets_sold"`
	TotalRevenue     float64            `json:"total_revenue"`
	AverageOccupancy *float64           `json:"average_occupancy"`
	RevenuePerMovie  float64            `json:"revenue_per_movie"`
	TicketsPerMovie  float64            `json:"tickets_per_movie"`
	Movies           []MoviePerformance `json:"movies"`
}

type DirectorSummary struct {
	TotalDirectorsAnalyzed    int     `json:"total_directors_analyzed"`
	TotalRevenueGenerated     float64 `json:"total_revenue_generated"`
	TotalTicketsSold          int     `json:"total_tickets_sold"`
	AverageRevenuePerDirector float64 `json:"average_revenue_per_director"`
}

type DirectorReport struct {
	Summary   DirectorSummary       `json:"summary"`
	Directors []DirectorPerformance `json:"directors"`
}

// movieMetrics is the per-movie projection before the director unwind.
type movieMetrics struct {
	movie     model.Movie
	sessions  int
	sold      int
	revenue   float64
	occupancy *float64
}

// directorGroup accumulates one director across the unwound rows.
type directorGroup struct {
	director  model.Director
	movies    int
	sessions  int
	sold      int
	revenue   float64
	occupancy []float64
	rows      []MoviePerformance
}

func movieMatch(p DirectorParams) (store.Filter, error) {
	var f store.Filter
	if p.YearFrom != nil && p.YearTo != nil && *p.YearFrom > *p.YearTo {
		return nil, fmt.Errorf("%w: year_from %d is after year_to %d", repository.ErrInvalidInput, *p.YearFrom, *p.YearTo)
	}
	if p.YearFrom != nil {
		f = f.And(store.Gte("release_year", *p.YearFrom))
	}
	if p.YearTo != nil {
		f = f.And(store.Lte("release_year", *p.YearTo))
	}
	return f, nil
}

// DirectorPerformance ranks directors by the revenue of their movies.
func (e *Engine) DirectorPerformance(ctx context.Context, p DirectorParams) (*DirectorReport, error) {
	if p.MinMovies < 1 {
		p.MinMovies = 1
	}
	e.log.Infof("report: director performance min_movies=%d", p.MinMovies)

	match, err := movieMatch(p)
	if err != nil {
		e.log.Warnf("report: rejected director filters: %v", err)
		return nil, err
	}
	movies, err := e.repos.Movies.List(ctx, match, 0, 0)
	if err != nil {
		return nil, err
	}

	// lookup sessions -> rooms -> tickets
	sessions, err := fetchIn(ctx, e.repos.Sessions, "movie_id", distinct(movies, func(m model.Movie) []string { return []string{m.ID.Hex()} }))
	if err != nil {
		return nil, err
	}
	rooms, err := fetchByIDs(ctx, e.repos.Rooms, distinct(sessions, func(s model.Session) []string { return []string{s.RoomID} }))
	if err != nil {
		return nil, err
	}
	roomByID := index(rooms, func(r model.Room) string { return r.ID.Hex() })
	// a session whose room is gone drops out, like an $unwind on an empty join
	seated := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := roomByID[s.RoomID]; ok {
			seated = append(seated, s)
		}
	}
	tickets, err := fetchIn(ctx, e.repos.Tickets, "session_id", distinct(seated, func(s model.Session) []string { return []string{s.ID.Hex()} }))
	if err != nil {
		return nil, err
	}
	sessionsByMovie := group(seated, func(s model.Session) string { return s.MovieID })
	ticketsBySession := group(tickets, func(t model.Ticket) string { return t.SessionID })

	// project per movie
	metrics := make([]movieMetrics, 0, len(movies))
	for _, m := range movies {
		mm := movieMetrics{movie: m}
		var occ []float64
		for _, s := range sessionsByMovie[m.ID.Hex()] {
			sold, revenue := paid(ticketsBySession[s.ID.Hex()])
			mm.sessions++
			mm.sold += sold
			mm.revenue += revenue
			occ = append(occ, occupancy(sold, roomByID[s.RoomID].Capacity))
		}
		mm.occupancy = mean(occ)
		metrics = append(metrics, mm)
	}

	// unwind director_ids, lookup directors, group
	directors, err := fetchByIDs(ctx, e.repos.Directors, distinct(movies, func(m model.Movie) []string { return m.DirectorIDs }))
	if err != nil {
		return nil, err
	}
	directorByID := index(directors, func(d model.Director) string { return d.ID.Hex() })
	groups := make(map[string]*directorGroup)
	var order []string
	for _, mm := range metrics {
		seen := make(map[string]bool, len(mm.movie.DirectorIDs))
		for _, did := range mm.movie.DirectorIDs {
			d, ok := directorByID[did]
			if !ok || seen[did] {
				continue
			}
			seen[did] = true
			g, ok := groups[did]
			if !ok {
				g = &directorGroup{director: d}
				groups[did] = g
				order = append(order, did)
			}
			g.movies++
			g.sessions += mm.sessions
			g.sold += mm.sold
			g.revenue += mm.revenue
			if mm.occupancy != nil {
				g.occupancy = append(g.occupancy, *mm.occupancy)
			}
			g.rows = append(g.rows, MoviePerformance{
				Title:       mm.movie.Title,
				Genre:       mm.movie.Genre,
				ReleaseYear: mm.movie.ReleaseYear,
				Sessions:    mm.sessions,
				TicketsSold: mm.sold,
				Revenue:     mm.revenue,
				Occupancy:   mm.occupancy,
			})
		}
	}

	// filter on min_movies and derive
	out := make([]DirectorPerformance, 0, len(groups))
	for _, did := range order {
		g := groups[did]
		if g.movies < p.MinMovies {
			continue
		}
		row := DirectorPerformance{
			DirectorID:       did,
			DirectorName:     g.director.Name,
			Nationality:      g.director.Nationality,
			BirthDate:        g.director.BirthDate,
			TotalMovies:      g.movies,
			TotalSessions:    g.sessions,
			TotalTicketsSold: g.sold,
			TotalRevenue:     round2(g.revenue),
			RevenuePerMovie:  round2(g.revenue / float64(g.movies)),
			TicketsPerMovie:  round2(float64(g.sold) / float64(g.movies)),
			Movies:           g.rows,
		}
		if avg := mean(g.occupancy); avg != nil {
			r := round2(*avg)
			row.AverageOccupancy = &r
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalRevenue > out[j].TotalRevenue })

	rep := &DirectorReport{Directors: out}
	for _, d := range out {
		rep.Summary.TotalRevenueGenerated += d.TotalRevenue
		rep.Summary.TotalTicketsSold += d.TotalTicketsSold
	}
	rep.Summary.TotalDirectorsAnalyzed = len(out)
	if len(out) > 0 {
		rep.Summary.AverageRevenuePerDirector = round2(rep.Summary.TotalRevenueGenerated / float64(len(out)))
	}
	rep.Summary.TotalRevenueGenerated = round2(rep.Summary.TotalRevenueGenerated)
	return rep, nil
}
