package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	"github.com/noah-isme/sma-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
	"github.com/noah-isme/sma-enrollment-api/pkg/keylock"
)

// Withdraw policies for enrollments that already carry a grade.
const (
	WithdrawGradedAllow = "allow"
	WithdrawGradedDeny  = "deny"
)

const (
	operationEnroll   = "enroll"
	operationWithdraw = "withdraw"
	outcomeOK         = "OK"
)

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	CreateWithOccupancy(ctx context.Context, enrollment *models.Enrollment) error
	DeleteWithOccupancy(ctx context.Context, enrollment *models.Enrollment) error
	ListCourseWindowsByStudent(ctx context.Context, studentID string) ([]models.CourseWindows, error)
	ListTimetable(ctx context.Context, studentID string) ([]models.TimetableEntry, error)
	CountByCourse(ctx context.Context) ([]models.EnrollmentCount, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindWithWindows(ctx context.Context, id string) (*models.CourseWithWindows, error)
}

// EnrollmentConfig tunes coordinator behaviour.
type EnrollmentConfig struct {
	WithdrawGradedPolicy string
	PersistenceRetries   int
}

// EnrollmentService coordinates enrollment and withdrawal against the capacity
// ledger and the student's existing timetable. Mutations for one student and
// one course are serialised through keyed locks taken in student, course order.
type EnrollmentService struct {
	repo     enrollmentStore
	students studentReader
	courses  courseReader
	ledger   *CapacityLedger
	locks    *keylock.Locker
	metrics  *MetricsService
	cfg      EnrollmentConfig
	logger   *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, students studentReader, courses courseReader, ledger *CapacityLedger, metrics *MetricsService, cfg EnrollmentConfig, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ledger == nil {
		ledger = NewCapacityLedger(logger, metrics)
	}
	if cfg.PersistenceRetries < 0 {
		cfg.PersistenceRetries = 0
	}
	cfg.WithdrawGradedPolicy = strings.ToLower(strings.TrimSpace(cfg.WithdrawGradedPolicy))
	if cfg.WithdrawGradedPolicy != WithdrawGradedDeny {
		cfg.WithdrawGradedPolicy = WithdrawGradedAllow
	}
	return &EnrollmentService{
		repo:     repo,
		students: students,
		courses:  courses,
		ledger:   ledger,
		locks:    keylock.New(),
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ledger exposes the capacity ledger backing the coordinator.
func (s *EnrollmentService) Ledger() *CapacityLedger {
	return s.ledger
}

// Enroll places the student into the course when a seat is free and no
// scheduling conflict exists.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.enroll(ctx, studentID, courseID)
	s.metrics.RecordOutcome(operationEnroll, outcomeCode(err))
	return enrollment, err
}

func (s *EnrollmentService) enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if strings.TrimSpace(studentID) == "" || strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id and course_id are required")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindWithWindows(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	unlock := s.lock(studentID, courseID)
	defer unlock()

	attempts := s.cfg.PersistenceRetries + 1
	for attempt := 1; ; attempt++ {
		enrollment, err := s.tryEnroll(ctx, studentID, course)
		if err == nil {
			return enrollment, nil
		}
		if !appErrors.HasCode(err, appErrors.ErrPersistence.Code) || attempt >= attempts || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn("retrying enrollment persistence",
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

// tryEnroll runs dedup, reservation, conflict detection and persistence.
// Callers must hold the student and course locks.
func (s *EnrollmentService) tryEnroll(ctx context.Context, studentID string, course *models.CourseWithWindows) (*models.Enrollment, error) {
	exists, err := s.repo.Exists(ctx, studentID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student already enrolled in course")
	}

	if err := s.ledger.TryReserve(course.ID, course.MaxCapacity); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListCourseWindowsByStudent(ctx, studentID)
	if err != nil {
		s.release(course.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student timetable")
	}
	if conflicts := DetectConflicts(course.Windows, existing); len(conflicts) > 0 {
		s.release(course.ID)
		return nil, scheduleConflictError(conflicts)
	}

	enrollment := &models.Enrollment{StudentID: studentID, CourseID: course.ID, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateWithOccupancy(ctx, enrollment); err != nil {
		s.release(course.ID)
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student already enrolled in course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to persist enrollment")
	}
	return enrollment, nil
}

// Withdraw removes an enrollment. Students may only withdraw themselves.
func (s *EnrollmentService) Withdraw(ctx context.Context, enrollmentID, requesterID string, requesterRole models.UserRole) error {
	err := s.withdraw(ctx, enrollmentID, requesterID, requesterRole)
	s.metrics.RecordOutcome(operationWithdraw, outcomeCode(err))
	return err
}

func (s *EnrollmentService) withdraw(ctx context.Context, enrollmentID, requesterID string, requesterRole models.UserRole) error {
	enrollment, err := s.findEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if !requesterRole.Privileged() && enrollment.StudentID != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot withdraw another student's enrollment")
	}

	unlock := s.lock(enrollment.StudentID, enrollment.CourseID)
	defer unlock()

	// Reload under the locks: a concurrent withdraw may have removed the row.
	enrollment, err = s.findEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Graded() && s.cfg.WithdrawGradedPolicy == WithdrawGradedDeny {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "graded enrollments cannot be withdrawn")
	}
	if err := s.repo.DeleteWithOccupancy(ctx, enrollment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to withdraw enrollment")
	}
	s.release(enrollment.CourseID)
	return nil
}

// Reconcile seeds the capacity ledger from persisted enrollment counts.
func (s *EnrollmentService) Reconcile(ctx context.Context) error {
	counts, err := s.repo.CountByCourse(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment counts")
	}
	seed := make(map[string]int, len(counts))
	for _, c := range counts {
		seed[c.CourseID] = c.Count
	}
	s.ledger.SeedAll(seed)
	s.logger.Info("capacity ledger reconciled", zap.Int("courses", len(seed)))
	return nil
}

// Timetable lists the weekly meetings of every course the student is enrolled in.
func (s *EnrollmentService) Timetable(ctx context.Context, studentID string) ([]models.TimetableEntry, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	entries, err := s.repo.ListTimetable(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if entries == nil {
		entries = []models.TimetableEntry{}
	}
	return entries, nil
}

// Occupancy reports live seat usage for a course.
func (s *EnrollmentService) Occupancy(ctx context.Context, courseID string) (*models.CourseOccupancy, error) {
	course, err := s.courses.FindWithWindows(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	occupancy, _, ok := s.ledger.Snapshot(course.ID)
	if !ok {
		occupancy = course.CurrentStudents
	}
	available := course.MaxCapacity - occupancy
	if available < 0 {
		available = 0
	}
	return &models.CourseOccupancy{
		CourseID:       course.ID,
		Occupancy:      occupancy,
		MaxCapacity:    course.MaxCapacity,
		AvailableSeats: available,
	}, nil
}

func (s *EnrollmentService) findEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) lock(studentID, courseID string) func() {
	start := time.Now()
	unlock := s.locks.LockAll("student:"+studentID, "course:"+courseID)
	s.metrics.ObserveLockWait(time.Since(start))
	return unlock
}

func (s *EnrollmentService) release(courseID string) {
	if err := s.ledger.Release(courseID); err != nil {
		s.logger.Error("capacity ledger release failed", zap.String("course_id", courseID), zap.Error(err))
	}
}

func scheduleConflictError(conflicts []models.ScheduleConflict) error {
	msg := fmt.Sprintf("schedule conflict with %s", conflicts[0])
	if len(conflicts) > 1 {
		msg = fmt.Sprintf("%s and %d more", msg, len(conflicts)-1)
	}
	conflictErr := &models.ScheduleConflictError{Message: msg, Conflicts: conflicts}
	appErr := appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, msg)
	appErr.Details = conflicts
	return appErr
}

func outcomeCode(err error) string {
	if err == nil {
		return outcomeOK
	}
	return appErrors.FromError(err).Code
}

// ConflictsOf extracts the conflict list from a SCHEDULE_CONFLICT error.
func ConflictsOf(err error) []models.ScheduleConflict {
	var conflictErr *models.ScheduleConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Conflicts
	}
	return nil
}
