// Package validation holds the pure checks run before any remote call.
package validation

import (
	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

// MsgDuplicateCourseName is returned when a course name is already taken.
const MsgDuplicateCourseName = "Course name must be unique."

// ValidateCourseName fails when any existing course carries exactly the candidate's name.
func ValidateCourseName(candidate models.Course, existing []models.Course) error {
	for _, course := range existing {
		if course.Name == candidate.Name {
			return appErrors.Validation(MsgDuplicateCourseName)
		}
	}
	return nil
}
