package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

// Records applies the struct rules for courses, students and enrollments.
type Records struct {
	validate *validator.Validate
}

// NewRecords registers the record rules on validate, or on a fresh validator when nil.
func NewRecords(validate *validator.Validate) *Records {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("quarter_hour", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%15 == 0
	})
	validate.RegisterStructValidation(sameDay, models.Course{})
	return &Records{validate: validate}
}

// sameDay rejects course windows running past midnight.
func sameDay(sl validator.StructLevel) {
	course := sl.Current().Interface().(models.Course)
	window, err := course.Window()
	if err != nil {
		return
	}
	if window.End > models.MinutesPerDay {
		sl.ReportError(course.DurationMinutes, "class_duration", "DurationMinutes", "same_day", "")
	}
}

// Course checks a course before it is sent to the store.
func (r *Records) Course(course models.Course) error {
	return r.check(course, "course")
}

// Student checks a student before it is sent to the store.
func (r *Records) Student(student models.Student) error {
	return r.check(student, "student")
}

// Enrollment checks that both references are set.
func (r *Records) Enrollment(enrollment models.Enrollment) error {
	return r.check(enrollment, "enrollment")
}

func (r *Records) check(record interface{}, kind string) error {
	err := r.validate.Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+kind+" payload")
	}
	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, describe(fe))
	}
	message := fmt.Sprintf("invalid %s payload: %s", kind, strings.Join(reasons, "; "))
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "clock":
		return fe.Field() + " must be a time of day in HH:mm"
	case "quarter_hour":
		return fe.Field() + " must be a multiple of 15 minutes"
	case "same_day":
		return fe.Field() + " must end the course by 24:00"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
