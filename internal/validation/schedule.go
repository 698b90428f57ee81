package validation

import (
	"fmt"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

const overlapFormat = "The courses: '%s' and '%s' overlap. Cannot enroll."

// CheckScheduleOverlap rejects the candidate when its window shares an interior minute with any
// enrolled course. The first conflict in enrolled order is reported.
func CheckScheduleOverlap(candidate models.Course, enrolled []models.Course) error {
	window, err := candidate.Window()
	if err != nil {
		return appErrors.Validation(fmt.Sprintf("course %q: %v", candidate.Name, err))
	}
	for _, course := range enrolled {
		other, err := course.Window()
		if err != nil {
			return appErrors.Validation(fmt.Sprintf("course %q: %v", course.Name, err))
		}
		if window.Overlaps(other) {
			return appErrors.Validation(fmt.Sprintf(overlapFormat, candidate.Name, course.Name))
		}
	}
	return nil
}
