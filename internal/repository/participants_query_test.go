package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

func participantsFixture(t *testing.T) *spyStore {
	grace := models.Student{FirstName: "Grace", LastName: "Hopper", Age: 30}
	return newSpyStore(seedMemory(t,
		[]models.Course{courseA, courseB},
		[]models.Student{ada, grace},
		[]models.Enrollment{{StudentID: 1, CourseID: 1}, {StudentID: 2, CourseID: 1}},
	))
}

func TestParticipantsQueryFetch(t *testing.T) {
	spy := participantsFixture(t)
	query := NewParticipantsQuery(spy, nil, 0, nil)
	ctx := context.Background()

	students, err := query.FetchParticipants(ctx, courseA.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Grace", students[1].FirstName)

	empty, err := query.FetchParticipants(ctx, courseB.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Empty(t, query.State().Data)
	assert.Equal(t, 2, spy.count("rpc"))
}

func TestParticipantsQueryRemoteFailure(t *testing.T) {
	spy := participantsFixture(t)
	spy.failWith("rpc", &store.Error{Op: "rpc", Table: store.ProcEnrollmentsByCourse, Message: "function does not exist", Err: errors.New("42883")})
	query := NewParticipantsQuery(spy, nil, 0, nil)

	_, err := query.FetchParticipants(context.Background(), courseA.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsRemote(err))
	assert.Equal(t, "function does not exist", query.State().Error)
}

func TestParticipantsQueryUsesCache(t *testing.T) {
	spy := participantsFixture(t)
	cache := newFakeCache()
	query := NewParticipantsQuery(spy, cache, 0, nil)
	ctx := context.Background()

	_, err := query.FetchParticipants(ctx, courseA.ID)
	require.NoError(t, err)
	cached, err := query.FetchParticipants(ctx, courseA.ID)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
	assert.Equal(t, 1, spy.count("rpc"))

	query.Invalidate(ctx, courseA.ID)
	_, err = query.FetchParticipants(ctx, courseA.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, spy.count("rpc"))

	query.Invalidate(ctx, 0)
	assert.Equal(t, participantsKeyPrefix+"*", cache.invalidated[len(cache.invalidated)-1])
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "campus", nil)
	ctx := context.Background()

	var dest []models.Student
	assert.ErrorIs(t, repo.Get(ctx, "participants:course:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "participants:course:1", dest, 0))
	assert.NoError(t, repo.DeleteByPattern(ctx, "participants:*"))
	assert.NoError(t, repo.Close())
	assert.Equal(t, "campus:participants:course:1", repo.key("participants:course:1"))
}
