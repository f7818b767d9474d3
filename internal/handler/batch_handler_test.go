package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment-api/internal/middleware"
	"github.com/noah-isme/sma-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
)

type batchServiceMock struct {
	lastCourseID   string
	lastStudentIDs []string
	lastSubmitter  string
	result         *models.BatchResult
	job            *models.BatchJob
	err            error
}

func (m *batchServiceMock) EnrollBatch(ctx context.Context, courseID string, studentIDs []string) (*models.BatchResult, error) {
	m.lastCourseID = courseID
	m.lastStudentIDs = studentIDs
	return m.result, m.err
}

func (m *batchServiceMock) Submit(ctx context.Context, courseID string, studentIDs []string, submittedBy string) (*models.BatchJob, error) {
	m.lastCourseID = courseID
	m.lastStudentIDs = studentIDs
	m.lastSubmitter = submittedBy
	return m.job, m.err
}

func (m *batchServiceMock) Get(ctx context.Context, id string) (*models.BatchJob, error) {
	if m.job == nil || m.job.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
	}
	return m.job, nil
}

func newBatchContext(body, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/enrollments/batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	return c, w
}

func TestBatchHandlerEnrollJSON(t *testing.T) {
	mockSvc := &batchServiceMock{result: &models.BatchResult{
		CourseID:  "c1",
		Succeeded: []string{"s1"},
		Failed:    []models.BatchFailure{{StudentID: "s2", Code: "COURSE_FULL"}},
	}}
	handler := NewBatchHandler(mockSvc)

	c, w := newBatchContext(`{"student_ids":["s1","s2"]}`, "application/json")
	handler.Enroll(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", mockSvc.lastCourseID)
	assert.Equal(t, []string{"s1", "s2"}, mockSvc.lastStudentIDs)
	assert.Contains(t, w.Body.String(), `"failed":1`)
}

func TestBatchHandlerEnrollCSV(t *testing.T) {
	mockSvc := &batchServiceMock{result: &models.BatchResult{CourseID: "c1"}}
	handler := NewBatchHandler(mockSvc)

	c, w := newBatchContext("student_id\ns1\n \ns3\n", "text/csv; charset=utf-8")
	handler.Enroll(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1", "s3"}, mockSvc.lastStudentIDs)
}

func TestBatchHandlerEnrollInvalidJSON(t *testing.T) {
	mockSvc := &batchServiceMock{}
	handler := NewBatchHandler(mockSvc)

	c, w := newBatchContext(`{"student_ids":`, "application/json")
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastCourseID)
}

func TestBatchHandlerSubmitAccepted(t *testing.T) {
	mockSvc := &batchServiceMock{job: &models.BatchJob{ID: "b1", CourseID: "c1", Status: models.BatchStatusQueued}}
	handler := NewBatchHandler(mockSvc)

	c, w := newBatchContext(`{"student_ids":["s1"]}`, "application/json")
	handler.Submit(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "admin", mockSvc.lastSubmitter)
	assert.Contains(t, w.Body.String(), `"status":"QUEUED"`)
}

func TestBatchHandlerGet(t *testing.T) {
	mockSvc := &batchServiceMock{job: &models.BatchJob{ID: "b1", Status: models.BatchStatusCompleted}}
	handler := NewBatchHandler(mockSvc)

	c, w := newJSONContext(http.MethodGet, "/enrollment-batches/b1", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "b1"}}
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newJSONContext(http.MethodGet, "/enrollment-batches/missing", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
