package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/repository"
	"github.com/noah-isme/campus-admin-api/pkg/response"
)

const defaultStudentAge = 18

// StudentRequest is the create and update payload.
type StudentRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       *int   `json:"age"`
}

func (r StudentRequest) student(id int64) models.Student {
	age := defaultStudentAge
	if r.Age != nil {
		age = *r.Age
	}
	return models.Student{ID: id, FirstName: r.FirstName, LastName: r.LastName, Age: age}
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students *repository.StudentRepository
	courses  *repository.CourseRepository
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *repository.StudentRepository, courses *repository.CourseRepository) *StudentHandler {
	return &StudentHandler{students: students, courses: courses}
}

// List godoc
// @Summary Student collection state
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.students.State())
}

// Refresh godoc
// @Summary Reload students, then courses, from the store
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /students/refresh [post]
func (h *StudentHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.students.FetchAll(ctx); err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.courses.FetchAll(ctx); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.students.State())
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req.student(0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param payload body StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.students.Update(c.Request.Context(), req.student(id))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
