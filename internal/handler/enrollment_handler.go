package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
	"github.com/noah-isme/sma-enrollment-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Withdraw(ctx context.Context, enrollmentID, requesterID string, requesterRole models.UserRole) error
	Timetable(ctx context.Context, studentID string) ([]models.TimetableEntry, error)
	Occupancy(ctx context.Context, courseID string) (*models.CourseOccupancy, error)
}

// EnrollRequest is the payload for a single enrollment. Students may omit
// student_id to enroll themselves.
type EnrollRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id" binding:"required"`
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create godoc
// @Summary Enroll a student into a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope "ALREADY_ENROLLED, COURSE_FULL or SCHEDULE_CONFLICT"
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID := strings.TrimSpace(req.StudentID)
	if studentID == "" && claims.Role == models.RoleStudent {
		studentID = claims.ActorID()
	}
	if !claims.Role.Privileged() && studentID != claims.ActorID() {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only enroll themselves"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), studentID, strings.TrimSpace(req.CourseID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Withdraw an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope "graded enrollment under deny policy"
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.enrollments.Withdraw(c.Request.Context(), c.Param("id"), claims.ActorID(), claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timetable godoc
// @Summary Weekly timetable of a student
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/timetable [get]
func (h *EnrollmentHandler) Timetable(c *gin.Context) {
	entries, err := h.enrollments.Timetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Occupancy godoc
// @Summary Live seat usage of a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/occupancy [get]
func (h *EnrollmentHandler) Occupancy(c *gin.Context) {
	occupancy, err := h.enrollments.Occupancy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancy, nil)
}
