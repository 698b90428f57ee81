// Package store implements the table-style remote data store consumed by the repositories.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Remote tables and procedures.
const (
	TableCourses     = "courses"
	TableStudents    = "students"
	TableEnrollments = "enrollments"

	ProcEnrollmentsByCourse = "get_enrollments_by_course"
)

// Row is a column to value map sent on insert and update.
type Row map[string]interface{}

// Filter narrows a select to rows whose column equals the value.
type Filter struct {
	Column string
	Value  interface{}
}

// Eq builds an equality filter.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Value: value}
}

// Store is the generic table client. Destinations are pointers to slices of tagged structs.
type Store interface {
	Select(ctx context.Context, table string, dest interface{}, filters ...Filter) error
	Insert(ctx context.Context, table string, row Row, dest interface{}) error
	Update(ctx context.Context, table string, row Row, id int64) error
	Delete(ctx context.Context, table string, id int64) error
	Call(ctx context.Context, procedure string, params map[string]interface{}, dest interface{}) error
}

// ErrNotFound is wrapped by update and delete when no row matched the id.
var ErrNotFound = errors.New("no rows matched")

// Error reports a failed remote call. Message carries the store's own text.
type Error struct {
	Op      string
	Table   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, table string, err error) *Error {
	return &Error{Op: op, Table: table, Message: err.Error(), Err: err}
}

func notFound(op, table string, id int64) *Error {
	return &Error{
		Op:      op,
		Table:   table,
		Message: fmt.Sprintf("%s %s: id %d not found", op, table, id),
		Err:     ErrNotFound,
	}
}

// columns lists the projection for each known table. Description may be NULL remotely.
var columns = map[string][]string{
	TableCourses:     {"id", "course_name", "COALESCE(description, '') AS description", "start_time", "class_duration"},
	TableStudents:    {"id", "first_name", "last_name", "age"},
	TableEnrollments: {"id", "student_id", "course_id"},
}

func checkTable(table string) error {
	if _, ok := columns[table]; !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}
