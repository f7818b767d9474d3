package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
	"github.com/noah-isme/sma-enrollment-api/pkg/jobs"
)

// JobTypeEnrollmentBatch tags queue jobs carrying a batch enrollment.
const JobTypeEnrollmentBatch = "enrollment_batch"

const defaultBatchMaxSize = 500

type studentEnroller interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// BatchEnrollmentRequest is the payload of a batch enrollment call.
type BatchEnrollmentRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// BatchConfig bounds batch requests and async result retention.
type BatchConfig struct {
	MaxSize   int
	ResultTTL time.Duration
}

type batchPayload struct {
	CourseID   string
	StudentIDs []string
}

// BatchEnrollmentService drives the coordinator over a list of students.
// Items run in input order and an item failure never aborts the batch.
type BatchEnrollmentService struct {
	enroller  studentEnroller
	store     *BatchJobStore
	queue     jobDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	cfg       BatchConfig
	logger    *zap.Logger
}

// NewBatchEnrollmentService constructs BatchEnrollmentService. queue may be nil
// when only synchronous batches are served.
func NewBatchEnrollmentService(enroller studentEnroller, store *BatchJobStore, queue jobDispatcher, metrics *MetricsService, validate *validator.Validate, cfg BatchConfig, logger *zap.Logger) *BatchEnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultBatchMaxSize
	}
	if store == nil {
		store = NewBatchJobStore(nil, cfg.ResultTTL, logger)
	}
	return &BatchEnrollmentService{
		enroller:  enroller,
		store:     store,
		queue:     queue,
		metrics:   metrics,
		validator: validate,
		cfg:       cfg,
		logger:    logger,
	}
}

// EnrollBatch enrolls every student into the course and reports per-item outcomes.
func (s *BatchEnrollmentService) EnrollBatch(ctx context.Context, courseID string, studentIDs []string) (*models.BatchResult, error) {
	studentIDs, err := s.validate(courseID, BatchEnrollmentRequest{StudentIDs: studentIDs})
	if err != nil {
		return nil, err
	}
	return s.run(ctx, courseID, studentIDs), nil
}

func (s *BatchEnrollmentService) validate(courseID string, req BatchEnrollmentRequest) ([]string, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if len(req.StudentIDs) > s.cfg.MaxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch exceeds %d students", s.cfg.MaxSize))
	}
	ids := make([]string, len(req.StudentIDs))
	for i, id := range req.StudentIDs {
		ids[i] = strings.TrimSpace(id)
	}
	return ids, nil
}

func (s *BatchEnrollmentService) run(ctx context.Context, courseID string, studentIDs []string) *models.BatchResult {
	result := &models.BatchResult{CourseID: courseID, Succeeded: []string{}, Failed: []models.BatchFailure{}}
	for _, studentID := range studentIDs {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, models.BatchFailure{StudentID: studentID, Code: appErrors.ErrInternal.Code, Reason: ctx.Err().Error()})
			s.metrics.RecordBatchItem(appErrors.ErrInternal.Code)
			continue
		}
		if _, err := s.enroller.Enroll(ctx, studentID, courseID); err != nil {
			appErr := appErrors.FromError(err)
			result.Failed = append(result.Failed, models.BatchFailure{
				StudentID: studentID,
				Code:      appErr.Code,
				Reason:    appErr.Message,
				Conflicts: ConflictsOf(err),
			})
			s.metrics.RecordBatchItem(appErr.Code)
			continue
		}
		result.Succeeded = append(result.Succeeded, studentID)
		s.metrics.RecordBatchItem(outcomeOK)
	}
	s.logger.Info("batch enrollment processed",
		zap.String("course_id", courseID),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
	)
	return result
}

// Submit queues a batch for background processing and returns its tracking record.
func (s *BatchEnrollmentService) Submit(ctx context.Context, courseID string, studentIDs []string, submittedBy string) (*models.BatchJob, error) {
	studentIDs, err := s.validate(courseID, BatchEnrollmentRequest{StudentIDs: studentIDs})
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "async batch processing disabled")
	}
	job := &models.BatchJob{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		Status:      models.BatchStatusQueued,
		Submitted:   len(studentIDs),
		SubmittedBy: submittedBy,
		CreatedAt:   time.Now().UTC(),
	}
	s.store.Save(ctx, job)
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeEnrollmentBatch, Payload: batchPayload{CourseID: courseID, StudentIDs: studentIDs}}); err != nil {
		s.store.Delete(job.ID)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "batch queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue batch")
	}
	return job, nil
}

// Get returns a previously submitted batch.
func (s *BatchEnrollmentService) Get(ctx context.Context, id string) (*models.BatchJob, error) {
	return s.store.Get(ctx, id)
}

// Handle processes a queued batch job.
func (s *BatchEnrollmentService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(batchPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	record, err := s.store.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status == models.BatchStatusCompleted {
		return nil
	}
	record.Result = s.run(ctx, payload.CourseID, payload.StudentIDs)
	record.Status = models.BatchStatusCompleted
	now := time.Now().UTC()
	record.CompletedAt = &now
	s.store.Save(ctx, record)
	return nil
}

// BatchJobStore keeps async batch records in memory and mirrors them to the
// cache so other instances can answer status lookups.
type BatchJobStore struct {
	mu     sync.RWMutex
	jobs   map[string]*models.BatchJob
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewBatchJobStore constructs a store; cache may be nil.
func NewBatchJobStore(cache *CacheService, ttl time.Duration, logger *zap.Logger) *BatchJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchJobStore{jobs: make(map[string]*models.BatchJob), cache: cache, ttl: ttl, logger: logger}
}

func batchCacheKey(id string) string {
	return "enrollment-batch:" + id
}

// Save records the job and prunes completed jobs past their retention.
func (s *BatchJobStore) Save(ctx context.Context, job *models.BatchJob) {
	clone := *job
	cutoff := time.Now().UTC().Add(-s.ttl)
	s.mu.Lock()
	s.jobs[job.ID] = &clone
	for id, existing := range s.jobs {
		if existing.CompletedAt != nil && existing.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	s.cache.Set(ctx, batchCacheKey(job.ID), clone, s.ttl)
}

// Delete drops a job from memory.
func (s *BatchJobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// Get returns a copy of the job or NOT_FOUND.
func (s *BatchJobStore) Get(ctx context.Context, id string) (*models.BatchJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if ok {
		clone := *job
		return &clone, nil
	}
	var cached models.BatchJob
	if s.cache.Get(ctx, batchCacheKey(id), &cached) {
		return &cached, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
}
