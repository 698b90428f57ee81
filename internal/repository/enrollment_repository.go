package repository

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	"github.com/noah-isme/campus-admin-api/internal/validation"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

// participantsInvalidator drops cached participant lists after enrollment or student changes.
type participantsInvalidator interface {
	Invalidate(ctx context.Context, courseID int64)
}

// studentEnrollments is the local enrollment collection of one student.
// mu is held for the whole of a fetch, create or delete so the overlap check sees every prior insert.
type studentEnrollments struct {
	mu     sync.Mutex
	loaded bool
	items  collection[models.Enrollment]
}

// EnrollmentRepository holds one enrollment collection per student and guards new enrollments with the overlap check.
type EnrollmentRepository struct {
	store       store.Store
	records     *validation.Records
	invalidator participantsInvalidator
	logger      *zap.Logger

	mu       sync.Mutex
	students map[int64]*studentEnrollments
}

// NewEnrollmentRepository constructs an EnrollmentRepository. invalidator may be nil.
func NewEnrollmentRepository(st store.Store, records *validation.Records, invalidator participantsInvalidator, logger *zap.Logger) *EnrollmentRepository {
	if records == nil {
		records = validation.NewRecords(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentRepository{
		store:       st,
		records:     records,
		invalidator: invalidator,
		logger:      logger,
		students:    make(map[int64]*studentEnrollments),
	}
}

// FetchForStudent replaces the student's local collection with their remote enrollments.
func (r *EnrollmentRepository) FetchForStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	s := r.session(studentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.fetchLocked(ctx, studentID, s)
}

// EnsureLoaded fetches the student's enrollments unless a fetch already succeeded.
func (r *EnrollmentRepository) EnsureLoaded(ctx context.Context, studentID int64) error {
	s := r.session(studentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	_, err := r.fetchLocked(ctx, studentID, s)
	return err
}

// Create enrolls student in candidate unless its window overlaps a course the student already holds.
// allCourses resolves the enrolled course ids; the first conflict in its order is reported.
func (r *EnrollmentRepository) Create(ctx context.Context, candidate models.Course, student models.Student, allCourses []models.Course) (models.Enrollment, error) {
	enrollment := models.Enrollment{StudentID: student.ID, CourseID: candidate.ID}
	if err := r.records.Enrollment(enrollment); err != nil {
		return models.Enrollment{}, err
	}

	s := r.session(student.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if _, err := r.fetchLocked(ctx, student.ID, s); err != nil {
			return models.Enrollment{}, err
		}
	}

	enrolled := enrolledCourses(s.items.snapshot(), allCourses)
	if err := validation.CheckScheduleOverlap(candidate, enrolled); err != nil {
		r.logger.Info("enrollment rejected", zap.Int64("student_id", student.ID), zap.Int64("course_id", candidate.ID), zap.Error(err))
		return models.Enrollment{}, err
	}

	var inserted []models.Enrollment
	if err := r.store.Insert(ctx, store.TableEnrollments, enrollment.Row(), &inserted); err != nil {
		err = remoteError(err)
		r.logger.Warn("create enrollment failed", zap.Int64("student_id", student.ID), zap.Int64("course_id", candidate.ID), zap.Error(err))
		return models.Enrollment{}, err
	}
	if len(inserted) > 0 {
		enrollment.ID = inserted[0].ID
	}
	s.items.append(enrollment)
	r.invalidate(ctx, candidate.ID)
	r.logger.Info("enrollment created", zap.Int64("enrollment_id", enrollment.ID), zap.Int64("student_id", student.ID), zap.Int64("course_id", candidate.ID))
	return enrollment, nil
}

// Delete removes one of the student's enrollments remotely, then locally.
// An id that does not belong to the student is reported as not found and never reaches the store.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, enrollmentID int64) error {
	s := r.session(studentID)
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := false
	if !s.loaded {
		if _, err := r.fetchLocked(ctx, studentID, s); err != nil {
			return err
		}
		fresh = true
	}
	target, ok := findEnrollment(s.items.snapshot(), enrollmentID)
	if !ok && !fresh {
		if _, err := r.fetchLocked(ctx, studentID, s); err != nil {
			return err
		}
		target, ok = findEnrollment(s.items.snapshot(), enrollmentID)
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("enrollment %d not found", enrollmentID))
	}

	if err := r.store.Delete(ctx, store.TableEnrollments, enrollmentID); err != nil {
		err = remoteError(err)
		r.logger.Warn("delete enrollment failed", zap.Int64("enrollment_id", enrollmentID), zap.Error(err))
		return err
	}
	s.items.remove(func(e models.Enrollment) bool { return e.ID == enrollmentID })
	r.invalidate(ctx, target.CourseID)
	r.logger.Info("enrollment deleted", zap.Int64("enrollment_id", enrollmentID), zap.Int64("student_id", studentID))
	return nil
}

// Details resolves each of the student's enrollments against courses. Unknown course ids keep an empty name.
func (r *EnrollmentRepository) Details(studentID int64, courses []models.Course) []models.EnrollmentDetail {
	byID := make(map[int64]models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	enrollments := r.Snapshot(studentID)
	details := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, e := range enrollments {
		detail := models.EnrollmentDetail{Enrollment: e}
		if c, ok := byID[e.CourseID]; ok {
			detail.CourseName = c.Name
			detail.StartTime = c.StartTime
			detail.DurationMinutes = c.DurationMinutes
		}
		details = append(details, detail)
	}
	return details
}

// AvailableCourses returns the courses the student is not enrolled in, in the given order.
func (r *EnrollmentRepository) AvailableCourses(studentID int64, courses []models.Course) []models.Course {
	taken := courseIDs(r.Snapshot(studentID))
	available := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if _, ok := taken[c.ID]; !ok {
			available = append(available, c)
		}
	}
	return available
}

// Snapshot copies the student's local collection.
func (r *EnrollmentRepository) Snapshot(studentID int64) []models.Enrollment {
	if s := r.lookup(studentID); s != nil {
		return s.items.snapshot()
	}
	return []models.Enrollment{}
}

// State reports the student's collection with its loading and error flags.
func (r *EnrollmentRepository) State(studentID int64) State[models.Enrollment] {
	if s := r.lookup(studentID); s != nil {
		return s.items.state()
	}
	return State[models.Enrollment]{Data: []models.Enrollment{}}
}

func (r *EnrollmentRepository) fetchLocked(ctx context.Context, studentID int64, s *studentEnrollments) ([]models.Enrollment, error) {
	seq := s.items.begin()
	var enrollments []models.Enrollment
	if err := r.store.Select(ctx, store.TableEnrollments, &enrollments, store.Eq("student_id", studentID)); err != nil {
		err = remoteError(err)
		s.items.finish(seq, nil, err)
		r.logger.Warn("fetch enrollments failed", zap.Int64("student_id", studentID), zap.Error(err))
		return nil, err
	}
	s.items.finish(seq, enrollments, nil)
	s.loaded = true
	return enrollments, nil
}

func (r *EnrollmentRepository) session(studentID int64) *studentEnrollments {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[studentID]
	if !ok {
		s = &studentEnrollments{}
		r.students[studentID] = s
	}
	return s
}

func (r *EnrollmentRepository) lookup(studentID int64) *studentEnrollments {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.students[studentID]
}

func (r *EnrollmentRepository) invalidate(ctx context.Context, courseID int64) {
	if r.invalidator != nil {
		r.invalidator.Invalidate(ctx, courseID)
	}
}

func enrolledCourses(enrollments []models.Enrollment, allCourses []models.Course) []models.Course {
	taken := courseIDs(enrollments)
	enrolled := make([]models.Course, 0, len(taken))
	for _, c := range allCourses {
		if _, ok := taken[c.ID]; ok {
			enrolled = append(enrolled, c)
		}
	}
	return enrolled
}

func courseIDs(enrollments []models.Enrollment) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(enrollments))
	for _, e := range enrollments {
		ids[e.CourseID] = struct{}{}
	}
	return ids
}

func findEnrollment(enrollments []models.Enrollment, id int64) (models.Enrollment, bool) {
	for _, e := range enrollments {
		if e.ID == id {
			return e, true
		}
	}
	return models.Enrollment{}, false
}
