package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	"github.com/noah-isme/campus-admin-api/internal/validation"
)

// CourseRepository keeps the local course collection in step with the remote courses table.
type CourseRepository struct {
	store   store.Store
	records *validation.Records
	logger  *zap.Logger
	courses collection[models.Course]

	// createMu makes name check, insert and append one step. Fetches share it so none straddles a create.
	createMu sync.RWMutex
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(st store.Store, records *validation.Records, logger *zap.Logger) *CourseRepository {
	if records == nil {
		records = validation.NewRecords(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseRepository{store: st, records: records, logger: logger}
}

// FetchAll replaces the local collection with the remote table.
func (r *CourseRepository) FetchAll(ctx context.Context) ([]models.Course, error) {
	r.createMu.RLock()
	defer r.createMu.RUnlock()

	seq := r.courses.begin()
	var courses []models.Course
	if err := r.store.Select(ctx, store.TableCourses, &courses); err != nil {
		err = remoteError(err)
		r.courses.finish(seq, nil, err)
		r.logger.Warn("fetch courses failed", zap.Error(err))
		return nil, err
	}
	for i := range courses {
		courses[i] = canonicalStartTime(courses[i])
	}
	if !r.courses.finish(seq, courses, nil) {
		r.logger.Debug("discarded stale course fetch", zap.Uint64("seq", seq))
	}
	return courses, nil
}

// Create validates the course, rejects duplicate names and appends the stored course locally.
func (r *CourseRepository) Create(ctx context.Context, course models.Course) (models.Course, error) {
	r.createMu.Lock()
	defer r.createMu.Unlock()
	return r.createLocked(ctx, course)
}

// CreateNext is Create with the id proposed by NextID at insert time.
func (r *CourseRepository) CreateNext(ctx context.Context, course models.Course) (models.Course, error) {
	r.createMu.Lock()
	defer r.createMu.Unlock()
	course.ID = r.NextID()
	return r.createLocked(ctx, course)
}

func (r *CourseRepository) createLocked(ctx context.Context, course models.Course) (models.Course, error) {
	if err := r.records.Course(course); err != nil {
		return models.Course{}, err
	}
	if err := validation.ValidateCourseName(course, r.courses.snapshot()); err != nil {
		return models.Course{}, err
	}

	var inserted []models.Course
	if err := r.store.Insert(ctx, store.TableCourses, course.Row(), &inserted); err != nil {
		err = remoteError(err)
		r.logger.Warn("create course failed", zap.String("course_name", course.Name), zap.Error(err))
		return models.Course{}, err
	}
	if len(inserted) > 0 {
		course.ID = inserted[0].ID
	}
	course = canonicalStartTime(course)
	r.courses.append(course)
	r.logger.Info("course created", zap.Int64("course_id", course.ID), zap.String("course_name", course.Name))
	return course, nil
}

// Update writes the course by id and replaces the local entry in place.
func (r *CourseRepository) Update(ctx context.Context, course models.Course) (models.Course, error) {
	if err := r.records.Course(course); err != nil {
		return models.Course{}, err
	}
	if err := r.store.Update(ctx, store.TableCourses, course.Row(), course.ID); err != nil {
		err = remoteError(err)
		r.logger.Warn("update course failed", zap.Int64("course_id", course.ID), zap.Error(err))
		return models.Course{}, err
	}
	course = canonicalStartTime(course)
	r.courses.replace(func(c models.Course) bool { return c.ID == course.ID }, course)
	r.logger.Info("course updated", zap.Int64("course_id", course.ID))
	return course, nil
}

// Delete removes the course remotely, then locally. Enrollments are left in place.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, store.TableCourses, id); err != nil {
		err = remoteError(err)
		r.logger.Warn("delete course failed", zap.Int64("course_id", id), zap.Error(err))
		return err
	}
	r.courses.remove(func(c models.Course) bool { return c.ID == id })
	r.logger.Info("course deleted", zap.Int64("course_id", id))
	return nil
}

// NextID proposes max(id)+1 over the local collection.
func (r *CourseRepository) NextID() int64 {
	var maxID int64
	for _, c := range r.courses.snapshot() {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	return maxID + 1
}

// Find looks a course up in the local collection.
func (r *CourseRepository) Find(id int64) (models.Course, bool) {
	for _, c := range r.courses.snapshot() {
		if c.ID == id {
			return c, true
		}
	}
	return models.Course{}, false
}

// Snapshot copies the local collection.
func (r *CourseRepository) Snapshot() []models.Course {
	return r.courses.snapshot()
}

// State reports the collection with its loading and error flags.
func (r *CourseRepository) State() State[models.Course] {
	return r.courses.state()
}
