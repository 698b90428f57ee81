package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	"github.com/noah-isme/campus-admin-api/internal/validation"
)

// StudentRepository keeps the local student collection in step with the remote students table.
type StudentRepository struct {
	store       store.Store
	records     *validation.Records
	invalidator participantsInvalidator
	logger      *zap.Logger
	students    collection[models.Student]
}

// NewStudentRepository constructs a StudentRepository. invalidator may be nil.
func NewStudentRepository(st store.Store, records *validation.Records, invalidator participantsInvalidator, logger *zap.Logger) *StudentRepository {
	if records == nil {
		records = validation.NewRecords(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentRepository{store: st, records: records, invalidator: invalidator, logger: logger}
}

// FetchAll replaces the local collection with the remote table. Courses are not reloaded here.
func (r *StudentRepository) FetchAll(ctx context.Context) ([]models.Student, error) {
	seq := r.students.begin()
	var students []models.Student
	if err := r.store.Select(ctx, store.TableStudents, &students); err != nil {
		err = remoteError(err)
		r.students.finish(seq, nil, err)
		r.logger.Warn("fetch students failed", zap.Error(err))
		return nil, err
	}
	if !r.students.finish(seq, students, nil) {
		r.logger.Debug("discarded stale student fetch", zap.Uint64("seq", seq))
	}
	return students, nil
}

// Create inserts the student and appends it locally with the store-assigned id.
func (r *StudentRepository) Create(ctx context.Context, student models.Student) (models.Student, error) {
	if err := r.records.Student(student); err != nil {
		return models.Student{}, err
	}
	var inserted []models.Student
	if err := r.store.Insert(ctx, store.TableStudents, student.Row(), &inserted); err != nil {
		err = remoteError(err)
		r.logger.Warn("create student failed", zap.Error(err))
		return models.Student{}, err
	}
	if len(inserted) > 0 {
		student.ID = inserted[0].ID
	}
	r.students.append(student)
	r.logger.Info("student created", zap.Int64("student_id", student.ID))
	return student, nil
}

// Update writes the student by id and replaces the local entry in place.
// Cached participant lists of every course are dropped since any of them may carry the old record.
func (r *StudentRepository) Update(ctx context.Context, student models.Student) (models.Student, error) {
	if err := r.records.Student(student); err != nil {
		return models.Student{}, err
	}
	if err := r.store.Update(ctx, store.TableStudents, student.Row(), student.ID); err != nil {
		err = remoteError(err)
		r.logger.Warn("update student failed", zap.Int64("student_id", student.ID), zap.Error(err))
		return models.Student{}, err
	}
	r.students.replace(func(s models.Student) bool { return s.ID == student.ID }, student)
	r.invalidate(ctx)
	r.logger.Info("student updated", zap.Int64("student_id", student.ID))
	return student, nil
}

// Delete removes the student remotely, then locally.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, store.TableStudents, id); err != nil {
		err = remoteError(err)
		r.logger.Warn("delete student failed", zap.Int64("student_id", id), zap.Error(err))
		return err
	}
	r.students.remove(func(s models.Student) bool { return s.ID == id })
	r.invalidate(ctx)
	r.logger.Info("student deleted", zap.Int64("student_id", id))
	return nil
}

// Find looks a student up in the local collection.
func (r *StudentRepository) Find(id int64) (models.Student, bool) {
	for _, s := range r.students.snapshot() {
		if s.ID == id {
			return s, true
		}
	}
	return models.Student{}, false
}

// Snapshot copies the local collection.
func (r *StudentRepository) Snapshot() []models.Student {
	return r.students.snapshot()
}

// State reports the collection with its loading and error flags.
func (r *StudentRepository) State() State[models.Student] {
	return r.students.state()
}

func (r *StudentRepository) invalidate(ctx context.Context) {
	if r.invalidator != nil {
		r.invalidator.Invalidate(ctx, 0)
	}
}
