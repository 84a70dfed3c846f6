package report

import (
	"context"
	"math"

	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

// The helpers below are the building blocks of both reports: fetch a
// batch by ids (the join side), index or group it by a key, then fold the
// grouped tickets into paid totals.

// fetchByIDs loads the documents whose ids are in ids.  Malformed ids are
// skipped the same way a failed $toObjectId join finds nothing.
func fetchByIDs[T any](ctx context.Context, repo *repository.Repo[T], ids []string) ([]T, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if store.ValidID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []T{}, nil
	}
	return repo.List(ctx, store.ByIDs(valid), 0, 0)
}

// fetchIn loads the documents whose field equals one of values.
func fetchIn[T any](ctx context.Context, repo *repository.Repo[T], field string, values []string) ([]T, error) {
	if len(values) == 0 {
		return []T{}, nil
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return repo.List(ctx, store.Filter{store.In(field, vals...)}, 0, 0)
}

// index keys items by key; later duplicates win.
func index[K comparable, T any](items []T, key func(T) K) map[K]T {
	out := make(map[K]T, len(items))
	for _, it := range items {
		out[key(it)] = it
	}
	return out
}

// group buckets items by key keeping their order.
func group[K comparable, T any](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, it := range items {
		k := key(it)
		out[k] = append(out[k], it)
	}
	return out
}

// distinct collects the unique non-empty values of fn over items.
func distinct[T any](items []T, fn func(T) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		for _, v := range fn(it) {
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// paid folds tickets into the paid count and paid revenue.
func paid(tickets []model.Ticket) (sold int, revenue float64) {
	for _, t := range tickets {
		if t.Paid() {
			sold++
			revenue += t.TicketPrice
		}
	}
	return sold, revenue
}

// occupancy is sold/capacity as a percentage; zero capacity yields 0.
func occupancy(sold, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(sold) / float64(capacity) * 100
}

// round2 rounds half to even at two decimals, like MongoDB's $round.
func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// mean returns nil for an empty input.
func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	return &m
}
