package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-api/internal/models"
)

const seedYAML = `
courses:
  - id: 1
    course_name: Algebra
    start_time: "10:00"
    class_duration: 45
  - id: 2
    course_name: Biology
    start_time: "11:00"
    class_duration: 60
students:
  - first_name: Ada
    last_name: Lovelace
    age: 20
  - first_name: Alan
    last_name: Turing
    age: 22
enrollments:
  - student_id: 1
    course_id: 2
  - student_id: 2
    course_id: 2
`

func seededStore(t *testing.T) *MemoryStore {
	s := NewMemoryStore()
	require.NoError(t, s.LoadSeed([]byte(seedYAML)))
	return s
}

func TestMemoryStoreSeedAndSelect(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	var courses []models.Course
	require.NoError(t, s.Select(ctx, TableCourses, &courses))
	require.Len(t, courses, 2)
	assert.Equal(t, "Algebra", courses[0].Name)

	var students []models.Student
	require.NoError(t, s.Select(ctx, TableStudents, &students))
	assert.Equal(t, []int64{1, 2}, []int64{students[0].ID, students[1].ID})

	var enrollments []models.Enrollment
	require.NoError(t, s.Select(ctx, TableEnrollments, &enrollments, Eq("student_id", int64(2))))
	assert.Equal(t, []models.Enrollment{{ID: 2, StudentID: 2, CourseID: 2}}, enrollments)
}

func TestMemoryStoreInsertAssignsAndRejectsDuplicateID(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	var inserted []models.Course
	require.NoError(t, s.Insert(ctx, TableCourses, models.Course{Name: "Chemistry", StartTime: "12:00", DurationMinutes: 30}.Row(), &inserted))
	assert.Equal(t, int64(3), inserted[0].ID)

	err := s.Insert(ctx, TableCourses, models.Course{ID: 3, Name: "Physics"}.Row(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "courses_pkey")
}

func TestMemoryStoreEnrollmentForeignKeys(t *testing.T) {
	s := seededStore(t)
	err := s.Insert(context.Background(), TableEnrollments, models.Enrollment{StudentID: 1, CourseID: 99}.Row(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrollments_course_id_fkey")
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, TableStudents, models.Student{FirstName: "Augusta", LastName: "King", Age: 21}.Row(), 1))
	var students []models.Student
	require.NoError(t, s.Select(ctx, TableStudents, &students, Eq("id", int64(1))))
	assert.Equal(t, "Augusta", students[0].FirstName)

	require.NoError(t, s.Delete(ctx, TableEnrollments, 1))
	err := s.Delete(ctx, TableEnrollments, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Update(ctx, TableCourses, models.Course{}.Row(), 42), ErrNotFound))
}

func TestMemoryStoreDeleteRestrictedByEnrollments(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	err := s.Delete(ctx, TableCourses, 2)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), `violates foreign key constraint "enrollments_course_id_fkey"`)

	require.NoError(t, s.Delete(ctx, TableCourses, 1))
	require.NoError(t, s.Delete(ctx, TableEnrollments, 1))
	require.NoError(t, s.Delete(ctx, TableStudents, 1))
	assert.Error(t, s.Delete(ctx, TableStudents, 2))
}

func TestMemoryStoreEnrollmentsByCourse(t *testing.T) {
	s := seededStore(t)

	var students []models.Student
	err := s.Call(context.Background(), ProcEnrollmentsByCourse, map[string]interface{}{"p_course_id": int64(2)}, &students)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ada", students[0].FirstName)
	assert.Equal(t, "Alan", students[1].FirstName)

	students = nil
	require.NoError(t, s.Call(context.Background(), ProcEnrollmentsByCourse, map[string]interface{}{"p_course_id": int64(1)}, &students))
	assert.Empty(t, students)

	assert.Error(t, s.Call(context.Background(), "missing_proc", nil, &students))
}
