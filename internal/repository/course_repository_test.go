package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

func fourCourses() []models.Course {
	return []models.Course{
		{ID: 1, Name: "Algebra", StartTime: "08:00", DurationMinutes: 60},
		{ID: 2, Name: "Biology", StartTime: "09:00:00", DurationMinutes: 45},
		{ID: 3, Name: "Chemistry", StartTime: "10:00", DurationMinutes: 90},
		{ID: 4, Name: "Drawing", StartTime: "13:00", DurationMinutes: 30},
	}
}

func TestCourseRepositoryFetchAll(t *testing.T) {
	repo := NewCourseRepository(seedMemory(t, fourCourses(), nil, nil), nil, nil)

	courses, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 4)
	assert.Equal(t, "09:00", courses[1].StartTime)

	state := repo.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Equal(t, courses, state.Data)
}

func TestCourseRepositoryCreateRoundTrip(t *testing.T) {
	mem := seedMemory(t, fourCourses(), nil, nil)
	repo := NewCourseRepository(mem, nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	candidate := models.Course{ID: repo.NextID(), Name: "Economics", StartTime: "15:00", DurationMinutes: 60}
	created, err := repo.Create(ctx, candidate)
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)

	local := repo.Snapshot()
	require.Len(t, local, 5)
	assert.Equal(t, created, local[4])

	fetched, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, local, fetched)
}

func TestCourseRepositoryCreateAssignsStoreID(t *testing.T) {
	repo := NewCourseRepository(store.NewMemoryStore(), nil, nil)

	created, err := repo.Create(context.Background(), models.Course{Name: "Algebra", StartTime: "10:00", DurationMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(2), repo.NextID())
}

func TestCourseRepositoryCreateRejectsDuplicateName(t *testing.T) {
	spy := newSpyStore(seedMemory(t, fourCourses(), nil, nil))
	repo := NewCourseRepository(spy, nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.Course{Name: "Algebra", StartTime: "18:00", DurationMinutes: 30})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "Course name must be unique.", err.Error())
	assert.Equal(t, 0, spy.count("insert"))
	assert.Len(t, repo.Snapshot(), 4)

	_, err = repo.Create(ctx, models.Course{Name: "algebra", StartTime: "18:00", DurationMinutes: 30})
	assert.NoError(t, err)
}

func TestCourseRepositoryCreateRejectsInvalidRecord(t *testing.T) {
	spy := newSpyStore(store.NewMemoryStore())
	repo := NewCourseRepository(spy, nil, nil)

	_, err := repo.Create(context.Background(), models.Course{Name: "Late", StartTime: "23:00", DurationMinutes: 90})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, 0, spy.count("insert"))
}

func TestCourseRepositoryUpdateReplacesInPlace(t *testing.T) {
	repo := NewCourseRepository(seedMemory(t, fourCourses(), nil, nil), nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	updated := models.Course{ID: 2, Name: "Biology II", StartTime: "09:30", DurationMinutes: 60}
	_, err = repo.Update(ctx, updated)
	require.NoError(t, err)

	local := repo.Snapshot()
	assert.Equal(t, updated, local[1])
	found, ok := repo.Find(2)
	require.True(t, ok)
	assert.Equal(t, "Biology II", found.Name)

	// Renaming onto an existing name is accepted on update.
	_, err = repo.Update(ctx, models.Course{ID: 3, Name: "Algebra", StartTime: "10:00", DurationMinutes: 90})
	assert.NoError(t, err)
}

func TestCourseRepositoryDelete(t *testing.T) {
	repo := NewCourseRepository(seedMemory(t, fourCourses(), nil, nil), nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, 3))
	_, ok := repo.Find(3)
	assert.False(t, ok)
	assert.Len(t, repo.Snapshot(), 3)

	err = repo.Delete(ctx, 3)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Len(t, repo.Snapshot(), 3)
}

func TestCourseRepositoryFetchFailureKeepsCollection(t *testing.T) {
	spy := newSpyStore(seedMemory(t, fourCourses(), nil, nil))
	repo := NewCourseRepository(spy, nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	spy.failWith("select", &store.Error{Op: "select", Table: store.TableCourses, Message: "connection refused", Err: errors.New("dial")})
	_, err = repo.FetchAll(ctx)
	require.Error(t, err)
	assert.True(t, appErrors.IsRemote(err))
	assert.Equal(t, "connection refused", err.Error())

	state := repo.State()
	assert.Equal(t, "connection refused", state.Error)
	assert.False(t, state.Loading)
	assert.Len(t, state.Data, 4)
}

func TestCourseRepositoryRemoteInsertErrorIsVerbatim(t *testing.T) {
	spy := newSpyStore(store.NewMemoryStore())
	spy.failWith("insert", &store.Error{Op: "insert", Table: store.TableCourses, Message: "permission denied for table courses"})
	repo := NewCourseRepository(spy, nil, nil)

	_, err := repo.Create(context.Background(), models.Course{Name: "Algebra", StartTime: "10:00", DurationMinutes: 45})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRemote.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "permission denied for table courses", appErrors.FromError(err).Message)
	assert.Empty(t, repo.Snapshot())
}

func TestCourseRepositoryLaterFetchWins(t *testing.T) {
	mem := seedMemory(t, fourCourses(), nil, nil)
	gated := &gatedStore{Store: mem, gates: make(chan chan struct{})}
	repo := NewCourseRepository(gated, nil, nil)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := repo.FetchAll(ctx)
		first <- err
	}()
	gateFirst := <-gated.gates

	second := make(chan error, 1)
	go func() {
		_, err := repo.FetchAll(ctx)
		second <- err
	}()
	gateSecond := <-gated.gates

	assert.True(t, repo.State().Loading)

	close(gateSecond)
	require.NoError(t, <-second)
	assert.True(t, repo.State().Loading)

	require.NoError(t, mem.Insert(ctx, store.TableCourses, models.Course{Name: "Economics", StartTime: "15:00", DurationMinutes: 60}.Row(), nil))
	close(gateFirst)
	require.NoError(t, <-first)

	state := repo.State()
	assert.False(t, state.Loading)
	assert.Len(t, state.Data, 4)
}

func TestCourseRepositoryConcurrentCreatesKeepNamesUnique(t *testing.T) {
	spy := newSpyStore(seedMemory(t, fourCourses(), nil, nil))
	repo := NewCourseRepository(spy, nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateNext(ctx, models.Course{Name: "Economics", StartTime: "15:00", DurationMinutes: 60})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.Equal(t, "Course name must be unique.", err.Error())
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, spy.count("insert"))

	var remote []models.Course
	require.NoError(t, spy.Store.Select(ctx, store.TableCourses, &remote))
	assert.Len(t, remote, 5)
}

func TestCourseRepositoryConcurrentCreateNextAssignsDistinctIDs(t *testing.T) {
	repo := NewCourseRepository(seedMemory(t, fourCourses(), nil, nil), nil, nil)
	ctx := context.Background()
	_, err := repo.FetchAll(ctx)
	require.NoError(t, err)

	const attempts = 6
	var wg sync.WaitGroup
	ids := make(chan int64, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := repo.CreateNext(ctx, models.Course{Name: fmt.Sprintf("Elective %d", i), StartTime: "15:00", DurationMinutes: 60})
			assert.NoError(t, err)
			ids <- created.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d proposed twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, attempts)
	assert.Len(t, repo.Snapshot(), 4+attempts)
}
