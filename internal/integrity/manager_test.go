package integrity_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/cinema-management-api/internal/integrity"
	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

var errBoom = errors.New("boom")

// faultyStore fails writes on selected collections.
type faultyStore struct {
	store.Store
	failUpdateMany map[string]bool
	failDeleteMany map[string]bool
}

func (f *faultyStore) UpdateMany(ctx context.Context, coll string, flt store.Filter, u store.Update) (int64, error) {
	if f.failUpdateMany[coll] {
		return 0, errBoom
	}
	return f.Store.UpdateMany(ctx, coll, flt, u)
}

func (f *faultyStore) DeleteMany(ctx context.Context, coll string, flt store.Filter) (int64, error) {
	if f.failDeleteMany[coll] {
		return 0, errBoom
	}
	return f.Store.DeleteMany(ctx, coll, flt)
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	ctx   context.Context
	st    *faultyStore
	mgr   *integrity.Manager
	repos repository.Repositories
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := &faultyStore{Store: store.NewMemoryStore(), failUpdateMany: map[string]bool{}, failDeleteMany: map[string]bool{}}
	return &fixture{
		ctx:   context.Background(),
		st:    st,
		mgr:   integrity.NewManager(st, nil, quietLogger()),
		repos: repository.NewRepositories(st),
	}
}

func (f *fixture) create(t *testing.T, coll string, v any) string {
	t.Helper()
	id, err := f.mgr.Create(f.ctx, coll, v)
	require.NoError(t, err)
	return id
}

func (f *fixture) count(t *testing.T, coll string) int64 {
	t.Helper()
	n, err := f.st.Count(f.ctx, coll, nil)
	require.NoError(t, err)
	return n
}

func TestCreatePropagatesBackReferences(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "Ana", Nationality: "BR", BirthDate: "1970-01-01"})
	d2 := f.create(t, model.Directors, model.Director{Name: "Rui", Nationality: "PT", BirthDate: "1965-03-02"})

	m := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi", DirectorIDs: []string{d1, d2}})

	for _, id := range []string{d1, d2} {
		d, err := f.repos.Directors.Get(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{m}, d.MovieIDs)
	}
	movie, err := f.repos.Movies.Get(f.ctx, m)
	require.NoError(t, err)
	assert.Equal(t, []string{}, movie.SessionIDs, "nil lists are stored empty")
}

func TestCreateSessionAndTicketChain(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala 1", Capacity: 50})
	sess := f.create(t, model.Sessions, model.Session{DateTime: time.Now(), MovieID: movie, RoomID: room})
	ticket := f.create(t, model.Tickets, model.Ticket{TicketType: "inteira", PurchaseDate: time.Now(), PaymentStatus: model.StatusPaid, SessionID: sess})
	pay := f.create(t, model.Payments, model.PaymentDetail{TransactionID: "tx1", PaymentMethod: "pix", Status: "ok", PaymentDate: time.Now(), TicketID: ticket})

	mv, _ := f.repos.Movies.Get(f.ctx, movie)
	rm, _ := f.repos.Rooms.Get(f.ctx, room)
	ss, _ := f.repos.Sessions.Get(f.ctx, sess)
	tk, _ := f.repos.Tickets.Get(f.ctx, ticket)
	assert.Equal(t, []string{sess}, mv.SessionIDs)
	assert.Equal(t, []string{sess}, rm.SessionIDs)
	assert.Equal(t, []string{ticket}, ss.TicketIDs)
	assert.Equal(t, pay, tk.PaymentDetailsID)
}

func TestCreateMissingReferenceLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "Ana", Nationality: "BR", BirthDate: "1970"})

	_, err := f.mgr.Create(f.ctx, model.Movies, model.Movie{Title: "X", Genre: "Y", DirectorIDs: []string{d1, store.NewID()}})
	require.ErrorIs(t, err, repository.ErrReferenceNotFound)
	var refErr *repository.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, 2, refErr.Requested)
	assert.Equal(t, 1, refErr.Found)

	assert.EqualValues(t, 0, f.count(t, model.Movies))
	d, _ := f.repos.Directors.Get(f.ctx, d1)
	assert.Empty(t, d.MovieIDs)
}

func TestCreateMalformedReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Create(f.ctx, model.Sessions, model.Session{DateTime: time.Now(), MovieID: "abc", RoomID: store.NewID()})
	assert.ErrorIs(t, err, repository.ErrInvalidReference)
	assert.EqualValues(t, 0, f.count(t, model.Sessions))
}

func TestCreateCompensatesFailedLink(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "Ana", Nationality: "BR", BirthDate: "1970"})
	f.st.failUpdateMany[model.Directors] = true

	_, err := f.mgr.Create(f.ctx, model.Movies, model.Movie{Title: "X", Genre: "Y", DirectorIDs: []string{d1}})
	require.ErrorIs(t, err, repository.ErrAssociationFailed)
	assert.EqualValues(t, 0, f.count(t, model.Movies), "the inserted movie is removed")
}

func TestCreateCompensatesEarlierLinks(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala 1", Capacity: 50})
	f.st.failUpdateMany[model.Rooms] = true

	_, err := f.mgr.Create(f.ctx, model.Sessions, model.Session{DateTime: time.Now(), MovieID: movie, RoomID: room})
	require.ErrorIs(t, err, repository.ErrAssociationFailed)

	mv, _ := f.repos.Movies.Get(f.ctx, movie)
	assert.Empty(t, mv.SessionIDs, "movie link is undone")
	assert.EqualValues(t, 0, f.count(t, model.Sessions))
}

func TestUpdateMovesBackReferences(t *testing.T) {
	f := newFixture(t)
	m1 := f.create(t, model.Movies, model.Movie{Title: "A", Genre: "G"})
	m2 := f.create(t, model.Movies, model.Movie{Title: "B", Genre: "G"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala", Capacity: 10})
	sess := f.create(t, model.Sessions, model.Session{DateTime: time.Now(), MovieID: m1, RoomID: room})

	require.NoError(t, f.mgr.Update(f.ctx, model.Sessions, sess, bson.M{"movie_id": m2, "language_audio": "pt"}))

	a, _ := f.repos.Movies.Get(f.ctx, m1)
	b, _ := f.repos.Movies.Get(f.ctx, m2)
	s, _ := f.repos.Sessions.Get(f.ctx, sess)
	assert.Empty(t, a.SessionIDs)
	assert.Equal(t, []string{sess}, b.SessionIDs)
	assert.Equal(t, m2, s.MovieID)
	assert.Equal(t, "pt", s.LanguageAudio)
	assert.Equal(t, room, s.RoomID, "fields not sent are kept")
}

func TestUpdateReplacesListWholesale(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "A", Nationality: "x", BirthDate: "1"})
	d2 := f.create(t, model.Directors, model.Director{Name: "B", Nationality: "x", BirthDate: "1"})
	m := f.create(t, model.Movies, model.Movie{Title: "T", Genre: "G", DirectorIDs: []string{d1}})

	require.NoError(t, f.mgr.Update(f.ctx, model.Movies, m, bson.M{"director_ids": []string{d2}}))

	movie, _ := f.repos.Movies.Get(f.ctx, m)
	assert.Equal(t, []string{d2}, movie.DirectorIDs)
	a, _ := f.repos.Directors.Get(f.ctx, d1)
	b, _ := f.repos.Directors.Get(f.ctx, d2)
	assert.Empty(t, a.MovieIDs)
	assert.Equal(t, []string{m}, b.MovieIDs)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)
	err := f.mgr.Update(f.ctx, model.Rooms, store.NewID(), bson.M{"room_name": "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = f.mgr.Update(f.ctx, model.Rooms, "bad", bson.M{"room_name": "x"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	m := f.create(t, model.Movies, model.Movie{Title: "T", Genre: "G"})
	err = f.mgr.Update(f.ctx, model.Movies, m, bson.M{"director_ids": []string{store.NewID()}})
	assert.ErrorIs(t, err, repository.ErrReferenceNotFound)
}

func TestUpdateRestoresOnFailedLink(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "A", Nationality: "x", BirthDate: "1"})
	d2 := f.create(t, model.Directors, model.Director{Name: "B", Nationality: "x", BirthDate: "1"})
	m := f.create(t, model.Movies, model.Movie{Title: "T", Genre: "G", DirectorIDs: []string{d1}})
	f.st.failUpdateMany[model.Directors] = true

	err := f.mgr.Update(f.ctx, model.Movies, m, bson.M{"director_ids": []string{d2}, "genre": "Drama"})
	require.ErrorIs(t, err, repository.ErrAssociationFailed)

	movie, _ := f.repos.Movies.Get(f.ctx, m)
	assert.Equal(t, []string{d1}, movie.DirectorIDs)
	assert.Equal(t, "G", movie.Genre)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "A", Nationality: "x", BirthDate: "1"})
	d2 := f.create(t, model.Directors, model.Director{Name: "B", Nationality: "x", BirthDate: "1"})
	m1 := f.create(t, model.Movies, model.Movie{Title: "T1", Genre: "G", DirectorIDs: []string{d1, d2}})
	m2 := f.create(t, model.Movies, model.Movie{Title: "T2", Genre: "G", DirectorIDs: []string{d1}})

	require.NoError(t, f.mgr.Delete(f.ctx, model.Directors, d1))

	_, err := f.repos.Directors.Get(f.ctx, d1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	a, _ := f.repos.Movies.Get(f.ctx, m1)
	b, _ := f.repos.Movies.Get(f.ctx, m2)
	assert.Equal(t, []string{d2}, a.DirectorIDs)
	assert.Empty(t, b.DirectorIDs)
}

func TestDeleteTicketDeletesPayment(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala 1", Capacity: 50})
	sess := f.create(t, model.Sessions, model.Session{DateTime: time.Now(), MovieID: movie, RoomID: room})
	ticket := f.create(t, model.Tickets, model.Ticket{TicketType: "meia", PurchaseDate: time.Now(), PaymentStatus: model.StatusPaid, SessionID: sess})
	f.create(t, model.Payments, model.PaymentDetail{TransactionID: "tx", PaymentMethod: "pix", Status: "ok", PaymentDate: time.Now(), TicketID: ticket})

	require.NoError(t, f.mgr.Delete(f.ctx, model.Tickets, ticket))

	assert.EqualValues(t, 0, f.count(t, model.Payments))
	s, _ := f.repos.Sessions.Get(f.ctx, sess)
	assert.Empty(t, s.TicketIDs)
}

func TestDeletePaymentClearsTicket(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala 1", Capacity: 50})
	sess := f.create(t, model.Sessions, model.Session{DateTime: time.Now(), MovieID: movie, RoomID: room})
	ticket := f.create(t, model.Tickets, model.Ticket{TicketType: "meia", PurchaseDate: time.Now(), PaymentStatus: model.StatusPaid, SessionID: sess})
	pay := f.create(t, model.Payments, model.PaymentDetail{TransactionID: "tx", PaymentMethod: "pix", Status: "ok", PaymentDate: time.Now(), TicketID: ticket})

	require.NoError(t, f.mgr.Delete(f.ctx, model.Payments, pay))
	tk, _ := f.repos.Tickets.Get(f.ctx, ticket)
	assert.Empty(t, tk.PaymentDetailsID)
}

func TestDeleteNotFoundSkipsCascade(t *testing.T) {
	f := newFixture(t)
	f.st.failUpdateMany[model.Movies] = true
	err := f.mgr.Delete(f.ctx, model.Directors, store.NewID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NotErrorIs(t, err, repository.ErrAssociationFailed)
}

func TestDeleteRunsEveryCascadeRule(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala 1", Capacity: 50})
	sess := f.create(t, model.Sessions, model.Session{DateTime: time.Now(), MovieID: movie, RoomID: room})
	f.st.failUpdateMany[model.Movies] = true

	err := f.mgr.Delete(f.ctx, model.Sessions, sess)
	require.ErrorIs(t, err, repository.ErrAssociationFailed)

	rm, _ := f.repos.Rooms.Get(f.ctx, room)
	assert.Empty(t, rm.SessionIDs, "later rules still ran")
	assert.EqualValues(t, 0, f.count(t, model.Sessions))
}

func TestEveryCascadeMirrorsALink(t *testing.T) {
	for coll, rules := range map[string][]integrity.Cascade{
		model.Directors: integrity.Cascades(model.Directors),
		model.Movies:    integrity.Cascades(model.Movies),
		model.Rooms:     integrity.Cascades(model.Rooms),
		model.Sessions:  integrity.Cascades(model.Sessions),
		model.Tickets:   integrity.Cascades(model.Tickets),
		model.Payments:  integrity.Cascades(model.Payments),
	} {
		for _, c := range rules {
			found := false
			for _, l := range integrity.Links(c.Collection) {
				if l.Field == c.Field && l.Target == coll {
					found = true
				}
			}
			assert.True(t, found, "%s cascade on %s.%s has no matching link", coll, c.Collection, c.Field)
		}
	}
}

func TestCreateAndUpdateDropRepeatedIDs(t *testing.T) {
	f := newFixture(t)
	d1 := f.create(t, model.Directors, model.Director{Name: "Ana", Nationality: "BR", BirthDate: "1970-01-01"})
	d2 := f.create(t, model.Directors, model.Director{Name: "Rui", Nationality: "PT", BirthDate: "1965-03-02"})

	m := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi", DirectorIDs: []string{d1, d1}})
	movie, err := f.repos.Movies.Get(f.ctx, m)
	require.NoError(t, err)
	assert.Equal(t, []string{d1}, movie.DirectorIDs)
	dir, err := f.repos.Directors.Get(f.ctx, d1)
	require.NoError(t, err)
	assert.Equal(t, []string{m}, dir.MovieIDs)

	require.NoError(t, f.mgr.Update(f.ctx, model.Movies, m, bson.M{"director_ids": []string{d2, d1, d2}}))
	movie, err = f.repos.Movies.Get(f.ctx, m)
	require.NoError(t, err)
	assert.Equal(t, []string{d2, d1}, movie.DirectorIDs)
}

func TestTicketHasAtMostOnePayment(t *testing.T) {
	f := newFixture(t)
	movie := f.create(t, model.Movies, model.Movie{Title: "Duna", Genre: "Sci-Fi"})
	room := f.create(t, model.Rooms, model.Room{Name: "Sala 1", Capacity: 50})
	sess := f.create(t, model.Sessions, model.Session{DateTime: time.Now(), MovieID: movie, RoomID: room})
	newTicket := func() string {
		return f.create(t, model.Tickets, model.Ticket{TicketType: "inteira", PurchaseDate: time.Now(), PaymentStatus: model.StatusPaid, SessionID: sess})
	}
	payment := func(ticket string) model.PaymentDetail {
		return model.PaymentDetail{TransactionID: "tx", PaymentMethod: "pix", Status: "ok", PaymentDate: time.Now(), TicketID: ticket}
	}
	t1, t2 := newTicket(), newTicket()
	p1 := f.create(t, model.Payments, payment(t1))

	_, err := f.mgr.Create(f.ctx, model.Payments, payment(t1))
	assert.ErrorIs(t, err, repository.ErrConflict)
	n, err := f.st.Count(f.ctx, model.Payments, store.Filter{store.Eq("ticket_id", t1)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	err = f.mgr.Update(f.ctx, model.Tickets, t2, bson.M{"payment_details_id": p1})
	assert.ErrorIs(t, err, repository.ErrConflict)
	tk, err := f.repos.Tickets.Get(f.ctx, t2)
	require.NoError(t, err)
	assert.Empty(t, tk.PaymentDetailsID)

	require.NoError(t, f.mgr.Update(f.ctx, model.Tickets, t1, bson.M{"payment_details_id": p1}), "re-linking the owner is allowed")
	require.NoError(t, f.mgr.Update(f.ctx, model.Payments, p1, bson.M{"ticket_id": t2}), "a ticket without payment can take one")
	tk, err = f.repos.Tickets.Get(f.ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, p1, tk.PaymentDetailsID)
	tk, err = f.repos.Tickets.Get(f.ctx, t1)
	require.NoError(t, err)
	assert.Empty(t, tk.PaymentDetailsID)
}
