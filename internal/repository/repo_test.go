package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-management-api/internal/model"
	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

func TestRepoGetListCount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repos := repository.NewRepositories(st)

	for _, name := range []string{"Sala 1", "Sala 2", "IMAX"} {
		_, err := st.InsertOne(ctx, model.Rooms, model.Room{Name: name, Capacity: 100, SessionIDs: []string{}})
		require.NoError(t, err)
	}

	rooms, err := repos.Rooms.List(ctx, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Sala 2", rooms[0].Name)

	got, err := repos.Rooms.Get(ctx, rooms[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Sala 2", got.Name)
	assert.Equal(t, []string{}, got.SessionIDs)

	n, err := repos.Rooms.Count(ctx, store.Filter{store.Contains("room_name", "sala")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	empty, err := repos.Movies.List(ctx, nil, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRepoErrors(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(store.NewMemoryStore())

	_, err := repos.Directors.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = repos.Directors.Get(ctx, store.NewID())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.Directors.List(ctx, store.ByIDs([]string{"x"}), 0, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	refErr := &repository.ReferenceError{Field: "director_ids", Target: "directors", Requested: 3, Found: 1}
	assert.ErrorIs(t, refErr, repository.ErrReferenceNotFound)
	assert.Equal(t, "director_ids: 2 of 3 directors not found", refErr.Error())
}
