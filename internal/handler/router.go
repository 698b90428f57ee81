package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the endpoint sets mounted by Register.
type Handlers struct {
	Courses     *CourseHandler
	Students    *StudentHandler
	Enrollments *EnrollmentHandler
	Metrics     *MetricsHandler
}

// Register mounts the API under prefix and the ops endpoints at the root.
func Register(r *gin.Engine, prefix string, h Handlers, exposeMetrics bool) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if exposeMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.POST("/refresh", h.Courses.Refresh)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)
	courses.GET("/:id/participants", h.Courses.Participants)
	courses.GET("/:id/participants/export", h.Courses.ExportParticipants)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.POST("/refresh", h.Students.Refresh)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/enrollments", h.Enrollments.List)
	students.POST("/:id/enrollments", h.Enrollments.Create)
	students.DELETE("/:id/enrollments/:enrollmentId", h.Enrollments.Delete)
	students.GET("/:id/available-courses", h.Enrollments.Available)
}
