package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/repository"
	"github.com/noah-isme/campus-admin-api/internal/service"
	"github.com/noah-isme/campus-admin-api/pkg/response"
)

// EnrollmentRequest picks the course to enroll in.
type EnrollmentRequest struct {
	CourseID int64 `json:"course_id"`
}

// EnrollmentHandler sequences the student, course and enrollment repositories for the student in the path.
type EnrollmentHandler struct {
	students    *repository.StudentRepository
	courses     *repository.CourseRepository
	enrollments *repository.EnrollmentRepository
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(students *repository.StudentRepository, courses *repository.CourseRepository, enrollments *repository.EnrollmentRepository, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{students: students, courses: courses, enrollments: enrollments, metrics: metrics}
}

// List godoc
// @Summary Enrollments of a student with course details
// @Tags Enrollments
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	courses, err := h.loadedCourses(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.enrollments.FetchForStudent(ctx, studentID); err != nil {
		response.Error(c, err)
		return
	}
	state := h.enrollments.State(studentID)
	response.JSON(c, http.StatusOK, repository.State[models.EnrollmentDetail]{
		Data:    h.enrollments.Details(studentID, courses),
		Loading: state.Loading,
		Error:   state.Error,
	})
}

// Available godoc
// @Summary Courses the student is not enrolled in
// @Tags Enrollments
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/available-courses [get]
func (h *EnrollmentHandler) Available(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	courses, err := h.loadedCourses(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.enrollments.EnsureLoaded(ctx, studentID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.enrollments.AvailableCourses(studentID, courses))
}

// Create godoc
// @Summary Enroll a student in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body EnrollmentRequest true "Course to enroll in"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	ctx := c.Request.Context()
	student, err := h.student(ctx, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, err := h.loadedCourses(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	candidate, ok := h.courses.Find(req.CourseID)
	if !ok {
		response.Error(c, notFound("course", req.CourseID))
		return
	}

	enrollment, err := h.enrollments.Create(ctx, candidate, student, courses)
	if err != nil {
		h.metrics.RecordRejection("enrollment_create", err)
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Remove an enrollment
// @Tags Enrollments
// @Param id path int true "Student ID"
// @Param enrollmentId path int true "Enrollment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/enrollments/{enrollmentId} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollmentID, err := idParam(c, "enrollmentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.enrollments.Delete(c.Request.Context(), studentID, enrollmentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// student resolves the student from the loaded collection, reloading it once when unknown.
func (h *EnrollmentHandler) student(ctx context.Context, id int64) (models.Student, error) {
	if student, ok := h.students.Find(id); ok {
		return student, nil
	}
	if _, err := h.students.FetchAll(ctx); err != nil {
		return models.Student{}, err
	}
	if student, ok := h.students.Find(id); ok {
		return student, nil
	}
	return models.Student{}, notFound("student", id)
}

// loadedCourses returns the course collection, fetching it when nothing is loaded yet.
func (h *EnrollmentHandler) loadedCourses(ctx context.Context) ([]models.Course, error) {
	if courses := h.courses.Snapshot(); len(courses) > 0 {
		return courses, nil
	}
	return h.courses.FetchAll(ctx)
}
