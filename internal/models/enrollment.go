package models

// Enrollment links one student to one course.
type Enrollment struct {
	ID        int64 `db:"id" json:"id" yaml:"id"`
	StudentID int64 `db:"student_id" json:"student_id" yaml:"student_id" validate:"gt=0"`
	CourseID  int64 `db:"course_id" json:"course_id" yaml:"course_id" validate:"gt=0"`
}

// Row converts the enrollment into the insert payload.
func (e Enrollment) Row() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
	}
}

// EnrollmentDetail enriches an enrollment with the course resolved from the loaded course collection.
type EnrollmentDetail struct {
	Enrollment
	CourseName      string `json:"course_name"`
	StartTime       string `json:"start_time,omitempty"`
	DurationMinutes int    `json:"class_duration,omitempty"`
}
