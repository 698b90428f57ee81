package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

var (
	courseA = models.Course{ID: 1, Name: "Course A", StartTime: "10:00", DurationMinutes: 45}
	courseB = models.Course{ID: 2, Name: "Course B", StartTime: "10:45", DurationMinutes: 30}
	courseC = models.Course{ID: 3, Name: "Course C", StartTime: "10:30", DurationMinutes: 60}
	ada     = models.Student{ID: 1, FirstName: "Ada", LastName: "Lovelace", Age: 20}
)

func enrollmentFixture(t *testing.T, invalidator participantsInvalidator) (*EnrollmentRepository, *spyStore, []models.Course) {
	t.Helper()
	courses := []models.Course{courseA, courseB, courseC}
	mem := seedMemory(t, courses, []models.Student{ada}, []models.Enrollment{{StudentID: ada.ID, CourseID: courseA.ID}})
	spy := newSpyStore(mem)
	repo := NewEnrollmentRepository(spy, nil, invalidator, nil)
	_, err := repo.FetchForStudent(context.Background(), ada.ID)
	require.NoError(t, err)
	return repo, spy, courses
}

func TestEnrollmentRepositoryFetchForStudent(t *testing.T) {
	repo, _, _ := enrollmentFixture(t, nil)

	state := repo.State(ada.ID)
	assert.False(t, state.Loading)
	assert.Equal(t, []models.Enrollment{{ID: 1, StudentID: 1, CourseID: 1}}, state.Data)
}

func TestEnrollmentRepositoryCreateAdjacentCourse(t *testing.T) {
	repo, spy, courses := enrollmentFixture(t, nil)

	enrollment, err := repo.Create(context.Background(), courseB, ada, courses)
	require.NoError(t, err)
	assert.Equal(t, models.Enrollment{ID: 2, StudentID: ada.ID, CourseID: courseB.ID}, enrollment)
	assert.Equal(t, 1, spy.count("insert"))
	assert.Len(t, repo.Snapshot(ada.ID), 2)
}

func TestEnrollmentRepositoryCreateRejectsOverlap(t *testing.T) {
	repo, spy, courses := enrollmentFixture(t, nil)
	before := repo.Snapshot(ada.ID)

	_, err := repo.Create(context.Background(), courseC, ada, courses)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "The courses: 'Course C' and 'Course A' overlap. Cannot enroll.", err.Error())
	assert.Equal(t, 0, spy.count("insert"))
	assert.Equal(t, before, repo.Snapshot(ada.ID))
}

func TestEnrollmentRepositoryCreateIgnoresUnknownCourses(t *testing.T) {
	repo, _, _ := enrollmentFixture(t, nil)

	// Course A is not in allCourses, so nothing is considered enrolled.
	_, err := repo.Create(context.Background(), courseC, ada, []models.Course{courseB, courseC})
	assert.NoError(t, err)
}

func TestEnrollmentRepositoryDelete(t *testing.T) {
	repo, _, _ := enrollmentFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, ada.ID, 1))
	assert.Empty(t, repo.Snapshot(ada.ID))
}

func TestEnrollmentRepositoryDeleteUnknown(t *testing.T) {
	repo, spy, _ := enrollmentFixture(t, nil)
	before := repo.Snapshot(ada.ID)

	err := repo.Delete(context.Background(), ada.ID, 99)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Equal(t, "enrollment 99 not found", err.Error())
	assert.Equal(t, before, repo.Snapshot(ada.ID))
	assert.Equal(t, 0, spy.count("delete"))
}

func TestEnrollmentRepositoryDeleteOtherStudentsEnrollment(t *testing.T) {
	cache := newFakeCache()
	repo, spy, _ := enrollmentFixture(t, NewParticipantsQuery(nil, cache, 0, nil))

	err := repo.Delete(context.Background(), 2, 1)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Equal(t, 0, spy.count("delete"))
	assert.Empty(t, cache.invalidated)
	assert.Len(t, repo.Snapshot(ada.ID), 1)
}

func TestEnrollmentRepositoryDeleteSeesRemoteInsert(t *testing.T) {
	repo, spy, _ := enrollmentFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, spy.Store.Insert(ctx, store.TableEnrollments, models.Enrollment{StudentID: ada.ID, CourseID: courseB.ID}.Row(), nil))

	require.NoError(t, repo.Delete(ctx, ada.ID, 2))
	assert.Equal(t, []models.Enrollment{{ID: 1, StudentID: ada.ID, CourseID: courseA.ID}}, repo.Snapshot(ada.ID))
}

func TestEnrollmentRepositoryDetailsAndAvailable(t *testing.T) {
	repo, _, courses := enrollmentFixture(t, nil)

	details := repo.Details(ada.ID, courses)
	require.Len(t, details, 1)
	assert.Equal(t, "Course A", details[0].CourseName)
	assert.Equal(t, "10:00", details[0].StartTime)
	assert.Equal(t, 45, details[0].DurationMinutes)

	stale := repo.Details(ada.ID, []models.Course{courseB})
	assert.Equal(t, "", stale[0].CourseName)

	available := repo.AvailableCourses(ada.ID, courses)
	assert.Equal(t, []models.Course{courseB, courseC}, available)

	assert.Empty(t, repo.Details(2, courses))
	assert.Equal(t, courses, repo.AvailableCourses(2, courses))
}

func TestEnrollmentRepositoryInvalidatesParticipants(t *testing.T) {
	cache := newFakeCache()
	query := NewParticipantsQuery(nil, cache, 0, nil)
	repo, _, courses := enrollmentFixture(t, query)
	ctx := context.Background()

	_, err := repo.Create(ctx, courseB, ada, courses)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, ada.ID, 1))

	assert.Equal(t, []string{participantsKey(courseB.ID), participantsKey(courseA.ID)}, cache.invalidated)
}

func TestEnrollmentRepositoryCreateLoadsStudentFirst(t *testing.T) {
	courses := []models.Course{courseA, courseB, courseC}
	mem := seedMemory(t, courses, []models.Student{ada}, []models.Enrollment{{StudentID: ada.ID, CourseID: courseA.ID}})
	repo := NewEnrollmentRepository(mem, nil, nil, nil)

	_, err := repo.Create(context.Background(), courseC, ada, courses)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestEnrollmentRepositoryConcurrentCreatesSeeEachOther(t *testing.T) {
	// Course D overlaps Course B but not Course A.
	courseD := models.Course{ID: 4, Name: "Course D", StartTime: "11:00", DurationMinutes: 30}
	courses := []models.Course{courseA, courseB, courseC, courseD}
	grace := models.Student{ID: 2, FirstName: "Grace", LastName: "Hopper", Age: 30}
	mem := seedMemory(t, courses, []models.Student{ada, grace}, []models.Enrollment{{StudentID: ada.ID, CourseID: courseA.ID}})
	repo := NewEnrollmentRepository(mem, nil, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, candidate := range []models.Course{courseB, courseD, courseC} {
		wg.Add(1)
		go func(candidate models.Course) {
			defer wg.Done()
			_, err := repo.Create(ctx, candidate, ada, courses)
			errs <- err
		}(candidate)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = repo.FetchForStudent(ctx, grace.ID)
	}()
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if err != nil {
			assert.True(t, appErrors.IsValidation(err))
			rejected++
		}
	}
	assert.Equal(t, 2, rejected)

	var held []models.Enrollment
	require.NoError(t, mem.Select(ctx, store.TableEnrollments, &held, store.Eq("student_id", ada.ID)))
	assert.Len(t, held, 2)
	assert.ElementsMatch(t, held, repo.Snapshot(ada.ID))
	assert.Empty(t, repo.Snapshot(grace.ID))
}
