package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

// Repo reads documents of one collection decoded into T.  Writes go through
// the integrity manager so back-references stay consistent.
type Repo[T any] struct {
	st   store.Store
	coll string
}

// New returns a repository over the named collection.
func New[T any](st store.Store, coll string) *Repo[T] {
	return &Repo[T]{st: st, coll: coll}
}

// Collection returns the collection name.
func (r *Repo[T]) Collection() string { return r.coll }

// Get fetches one document by hex id.
func (r *Repo[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := r.st.FindOne(ctx, r.coll, id)
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return nil, fmt.Errorf("%w: invalid id %q", ErrInvalidInput, id)
	case errors.Is(err, store.ErrNoDocument):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns the matching documents in identifier order.  It always
// returns a non-nil slice.
func (r *Repo[T]) List(ctx context.Context, f store.Filter, skip, limit int64) ([]T, error) {
	raws, err := r.st.Find(ctx, r.coll, f, store.FindOptions{Skip: skip, Limit: limit})
	if errors.Is(err, store.ErrInvalidID) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := bson.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Count returns the number of matching documents.
func (r *Repo[T]) Count(ctx context.Context, f store.Filter) (int64, error) {
	n, err := r.st.Count(ctx, r.coll, f)
	if errors.Is(err, store.ErrInvalidID) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return n, err
}

// Repositories bundles one repository per entity.
type Repositories struct {
	Directors *Repo[model.Director]
	Movies    *Repo[model.Movie]
	Rooms     *Repo[model.Room]
	Sessions  *Repo[model.Session]
	Tickets   *Repo[model.Ticket]
	Payments  *Repo[model.PaymentDetail]
}

// NewRepositories builds every entity repository over st.
func NewRepositories(st store.Store) Repositories {
	return Repositories{
		Directors: New[model.Director](st, model.Directors),
		Movies:    New[model.Movie](st, model.Movies),
		Rooms:     New[model.Room](st, model.Rooms),
		Sessions:  New[model.Session](st, model.Sessions),
		Tickets:   New[model.Ticket](st, model.Tickets),
		Payments:  New[model.PaymentDetail](st, model.Payments),
	}
}
