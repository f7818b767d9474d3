package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	"github.com/noah-isme/sma-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
	"github.com/noah-isme/sma-enrollment-api/pkg/response"
)

const csvContentType = "text/csv"

type batchService interface {
	EnrollBatch(ctx context.Context, courseID string, studentIDs []string) (*models.BatchResult, error)
	Submit(ctx context.Context, courseID string, studentIDs []string, submittedBy string) (*models.BatchJob, error)
	Get(ctx context.Context, id string) (*models.BatchJob, error)
}

type batchCSVRow struct {
	StudentID string `csv:"student_id"`
}

// BatchHandler exposes batch enrollment endpoints.
type BatchHandler struct {
	batches batchService
}

// NewBatchHandler constructs BatchHandler.
func NewBatchHandler(batches batchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Enroll godoc
// @Summary Enroll many students into a course
// @Description Accepts JSON {"student_ids": [...]} or a text/csv body with a student_id column. Items are processed in order; failures are reported per student.
// @Tags Enrollments
// @Accept json
// @Accept text/csv
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.BatchEnrollmentRequest false "Student IDs"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollments/batch [post]
func (h *BatchHandler) Enroll(c *gin.Context) {
	studentIDs, err := bindStudentIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.batches.EnrollBatch(c.Request.Context(), c.Param("id"), studentIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	})
}

// Submit godoc
// @Summary Queue a batch enrollment for background processing
// @Tags Enrollments
// @Accept json
// @Accept text/csv
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.BatchEnrollmentRequest false "Student IDs"
// @Success 202 {object} response.Envelope
// @Router /courses/{id}/enrollments/batch/async [post]
func (h *BatchHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	studentIDs, err := bindStudentIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.batches.Submit(c.Request.Context(), c.Param("id"), studentIDs, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Get godoc
// @Summary Status and result of a queued batch
// @Tags Enrollments
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment-batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	job, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

func bindStudentIDs(c *gin.Context) ([]string, error) {
	if strings.HasPrefix(c.ContentType(), csvContentType) {
		var rows []*batchCSVRow
		if err := gocsv.Unmarshal(c.Request.Body, &rows); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid csv payload")
		}
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			if id := strings.TrimSpace(row.StudentID); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}
	var req service.BatchEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return req.StudentIDs, nil
}
