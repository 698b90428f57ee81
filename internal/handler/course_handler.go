package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/repository"
	"github.com/noah-isme/campus-admin-api/internal/service"
	"github.com/noah-isme/campus-admin-api/pkg/response"
)

// CourseRequest is the create and update payload. A missing id on create takes the next free id.
type CourseRequest struct {
	ID              *int64 `json:"id"`
	Name            string `json:"course_name"`
	Description     string `json:"description"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"class_duration"`
}

func (r CourseRequest) course(id int64) models.Course {
	return models.Course{
		ID:              id,
		Name:            r.Name,
		Description:     r.Description,
		StartTime:       r.StartTime,
		DurationMinutes: r.DurationMinutes,
	}
}

// CourseHandler exposes course endpoints.
type CourseHandler struct {
	courses      *repository.CourseRepository
	participants *repository.ParticipantsQuery
	exports      *service.ExportService
	metrics      *service.MetricsService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *repository.CourseRepository, participants *repository.ParticipantsQuery, exports *service.ExportService, metrics *service.MetricsService) *CourseHandler {
	return &CourseHandler{courses: courses, participants: participants, exports: exports, metrics: metrics}
}

// List godoc
// @Summary Course collection state
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.courses.State())
}

// Refresh godoc
// @Summary Reload courses from the store
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses/refresh [post]
func (h *CourseHandler) Refresh(c *gin.Context) {
	if _, err := h.courses.FetchAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.courses.State())
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	var (
		course models.Course
		err    error
	)
	if req.ID != nil {
		course, err = h.courses.Create(c.Request.Context(), req.course(*req.ID))
	} else {
		course, err = h.courses.CreateNext(c.Request.Context(), req.course(0))
	}
	if err != nil {
		h.metrics.RecordRejection("course_create", err)
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), req.course(id))
	if err != nil {
		h.metrics.RecordRejection("course_update", err)
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path int true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Participants godoc
// @Summary Students enrolled in a course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/participants [get]
func (h *CourseHandler) Participants(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.participants.FetchParticipants(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, repository.State[models.Student]{Data: students})
}

// ExportParticipants godoc
// @Summary Download the course roster
// @Tags Courses
// @Produce application/octet-stream
// @Param id path int true "Course ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/participants/export [get]
func (h *CourseHandler) ExportParticipants(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, ok := h.courses.Find(id)
	if !ok {
		if _, err := h.courses.FetchAll(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
		if course, ok = h.courses.Find(id); !ok {
			response.Error(c, notFound("course", id))
			return
		}
	}
	result, err := h.exports.Roster(c.Request.Context(), course, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Body)
}
